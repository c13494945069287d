package gee

import (
	"fmt"
	"sort"
	"strings"
)

type HandlerFunc func(*Context)

// router 所有方法共用一棵前缀树，handler 挂在叶子节点上按方法区分
type router struct {
	root    *node
	methods []string
}

func newRouter() *router {
	return &router{root: &node{}}
}

// parsePattern 按 / 切分，忽略空段；* 段之后的内容不再参与匹配
func parsePattern(pattern string) []string {
	vs := strings.Split(pattern, "/")

	parts := make([]string, 0, len(vs))
	for _, item := range vs {
		if item != "" {
			parts = append(parts, item)
			if item[0] == '*' {
				break
			}
		}
	}
	return parts
}

func (r *router) addRoute(method string, pattern string, handlers ...HandlerFunc) {
	if len(handlers) == 0 {
		panic("gee: addRoute requires at least one handler")
	}
	leaf := r.root.insert(pattern, parsePattern(pattern), 0)
	if leaf.handlers == nil {
		leaf.handlers = make(map[string][]HandlerFunc)
	}
	if _, dup := leaf.handlers[method]; dup {
		panic(fmt.Sprintf("gee: route %s %s already registered", method, leaf.pattern))
	}
	leaf.handlers[method] = append([]HandlerFunc(nil), handlers...)

	i := sort.SearchStrings(r.methods, method)
	if i == len(r.methods) || r.methods[i] != method {
		r.methods = append(r.methods, "")
		copy(r.methods[i+1:], r.methods[i:])
		r.methods[i] = method
	}
}

func (r *router) getRoute(method string, path string) (*node, map[string]string) {
	n, values := r.root.search(method, parsePattern(path), 0, nil)
	if n == nil {
		return nil, nil
	}
	params := make(map[string]string, len(n.paramNames))
	for i, name := range n.paramNames {
		if name != "" {
			params[name] = values[i]
		}
	}
	return n, params
}

func (r *router) handle(c *Context) {
	n, params := r.getRoute(c.Method, c.Path)
	if n != nil {
		c.Params = params
		c.RoutePattern = n.pattern
		c.handlers = append(c.handlers, n.handlers[c.Method]...)
	} else if allow := r.AllowedMethods(c.Path); len(allow) == 0 {
		c.handlers = append(c.handlers, c.engine.noRoute...)
	} else {
		c.SetHeader("Allow", strings.Join(allow, ", "))
		c.handlers = append(c.handlers, c.engine.noMethod...)
	}
	c.Next()
}

// AllowedMethods 返回能处理 path 的方法，已排序
func (r *router) AllowedMethods(path string) []string {
	parts := parsePattern(path)
	var allow []string
	for _, method := range r.methods {
		if n, _ := r.root.search(method, parts, 0, nil); n != nil {
			allow = append(allow, method)
		}
	}
	return allow
}
