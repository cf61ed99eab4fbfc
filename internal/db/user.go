package db

import (
	"errors"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User 定义了用户模型
// Email 作为登录凭证全局唯一，DisplayName/AvatarURL 为可选展示信息
type User struct {
	gorm.Model
	Email         string `gorm:"unique;not null"`
	Password      string `gorm:"not null"`
	EmailVerified bool
	DisplayName   string
	AvatarURL     string
}

// OwnerID 返回该用户作为习惯记录归属方的稳定标识
func (u *User) OwnerID() string {
	return strconv.FormatUint(uint64(u.ID), 10)
}

// EnsureUser 存在性检查：若提供的邮箱与密码均非空且不存在对应账号，则创建一个 bcrypt 哈希的用户。
func EnsureUser(email, password string) error {
	trimmedEmail := strings.TrimSpace(email)
	trimmedPassword := strings.TrimSpace(password)
	if trimmedEmail == "" || trimmedPassword == "" {
		return nil
	}

	if DB == nil {
		return errors.New("database not initialized")
	}

	var existing User
	if err := DB.Where("email = ?", trimmedEmail).First(&existing).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(trimmedPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		return DB.Create(&User{Email: trimmedEmail, Password: string(hashed)}).Error
	}

	return nil
}
