// Package migrations 内嵌 Postgres 的 schema 文件，按文件名顺序执行。
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
