// hashpass 用服务同样的 bcrypt 参数生成密码哈希，便于手工写入 users 表。
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/nalberthy/url-shorten/internal/platform/auth"
	"github.com/nalberthy/url-shorten/internal/platform/config"
)

func main() {
	if len(os.Args) != 2 {
		log.Fatal("usage: go run ./cmd/tools/hashpass <password>")
	}

	cfg := config.Load()
	hash, err := auth.NewBcryptHasher(cfg.BcryptCost).Hash(os.Args[1])
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(hash)
}
