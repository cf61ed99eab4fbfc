package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/habitflow/internal/db"
)

func main() {
	// 初始化数据库
	if err := db.Init(os.Getenv("DATABASE_PATH")); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	email := strings.TrimSpace(os.Getenv("INIT_USER_EMAIL"))
	if email == "" {
		email = "demo@habitflow.local"
	}
	password := strings.TrimSpace(os.Getenv("INIT_USER_PASSWORD"))
	if password == "" {
		password = "habit123"
	}

	// 检查是否已存在该账号
	var count int64
	db.DB.Model(&db.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		fmt.Println("账号已存在，无需初始化")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("密码加密失败:", err)
	}

	user := db.User{
		Email:    email,
		Password: string(hashedPassword),
	}

	if err := db.DB.Create(&user).Error; err != nil {
		log.Fatal("创建用户失败:", err)
	}

	fmt.Println("演示账号创建成功")
	fmt.Println("邮箱:", email)
	fmt.Println("密码:", password)
}
