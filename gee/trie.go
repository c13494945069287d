package gee

import (
	"fmt"
	"strings"
)

// node 是路由前缀树的一个路径段。
//
// 同一层的子节点分三类：静态段、参数段（:name）、通配段（*name）。
// 查找时按 静态 > 参数 > 通配 的顺序回溯，/api/urls/list 不会被 /api/urls/:code 抢走。
type node struct {
	part     string
	static   map[string]*node
	param    *node
	catchAll *node

	// 以下字段只在注册过路由的节点上有值
	pattern    string
	paramNames []string
	handlers   map[string][]HandlerFunc
}

// insert 返回 parts 对应的叶子节点，不存在时创建。
// 同一位置的参数段名字必须一致，否则参数值会取错名字。
func (n *node) insert(pattern string, parts []string, height int) *node {
	if len(parts) == height {
		if n.pattern == "" {
			n.pattern = pattern
			n.paramNames = paramNames(parts)
		}
		return n
	}

	part := parts[height]
	var child *node
	switch part[0] {
	case ':':
		n.param = wildChild(n.param, part, pattern)
		child = n.param
	case '*':
		n.catchAll = wildChild(n.catchAll, part, pattern)
		child = n.catchAll
	default:
		if n.static == nil {
			n.static = make(map[string]*node)
		}
		child = n.static[part]
		if child == nil {
			child = &node{part: part}
			n.static[part] = child
		}
	}
	return child.insert(pattern, parts, height+1)
}

func wildChild(existing *node, part, pattern string) *node {
	if existing == nil {
		return &node{part: part}
	}
	if existing.part != part {
		panic(fmt.Sprintf("gee: %q conflicts with existing wildcard %q", pattern, existing.part))
	}
	return existing
}

// search 找到能处理 method 的叶子节点，values 按顺序收集参数值
func (n *node) search(method string, parts []string, height int, values []string) (*node, []string) {
	if len(parts) == height {
		if n.handlers[method] != nil {
			return n, values
		}
		return nil, nil
	}

	part := parts[height]
	if child := n.static[part]; child != nil {
		if found, v := child.search(method, parts, height+1, values); found != nil {
			return found, v
		}
	}
	if n.param != nil {
		if found, v := n.param.search(method, parts, height+1, append(values, part)); found != nil {
			return found, v
		}
	}
	if n.catchAll != nil && n.catchAll.handlers[method] != nil {
		return n.catchAll, append(values, strings.Join(parts[height:], "/"))
	}
	return nil, nil
}

func paramNames(parts []string) []string {
	var names []string
	for _, p := range parts {
		if p[0] == ':' || p[0] == '*' {
			names = append(names, p[1:])
		}
	}
	return names
}
