package main

import (
	"flag"
	"fmt"
	"log"

	"kindergarten_billing/internal/pkg/config"
	"kindergarten_billing/internal/pkg/middleware"
	"kindergarten_billing/pkg/utils"
)

// 开发/压测用的 JWT 签发工具
// 生产环境的令牌由平台账号中心签发，本服务只做验签
var (
	userID = flag.String("user", "", "用户 ID")
	role   = flag.Int("role", middleware.RoleStaff, "角色: 0=家长 1=园务人员 2=管理员")
)

func main() {
	flag.Parse()
	if *userID == "" {
		log.Fatal("usage: token -user <id> [-role 0|1|2]")
	}

	config.LoadConfig()

	token, expireAt, err := utils.GenerateToken(*userID, *role)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	fmt.Println(token)
	fmt.Printf("expires at: %s\n", expireAt.Format("2006-01-02 15:04:05"))
}
