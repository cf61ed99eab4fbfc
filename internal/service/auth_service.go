package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/habitflow/internal/db"
	"github.com/habitflow/internal/state"
)

var (
	// ErrInvalidCredentials 在邮箱不存在或密码不匹配时返回，两种情况不作区分
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken 在注册已存在的邮箱时返回
	ErrEmailTaken = errors.New("email is already registered")
)

// AuthService 基于 bcrypt 与用户表实现身份协作方接口
type AuthService struct {
	db *gorm.DB
}

// NewAuthService 构造 AuthService
func NewAuthService(gdb *gorm.DB) *AuthService {
	return &AuthService{db: gdb}
}

// SignUp 注册新账号并返回其身份
func (s *AuthService) SignUp(email, password string) (*state.Identity, error) {
	trimmedEmail := strings.ToLower(strings.TrimSpace(email))
	if trimmedEmail == "" || !strings.Contains(trimmedEmail, "@") {
		return nil, errors.New("a valid email is required")
	}
	if len(password) < 6 {
		return nil, errors.New("password must be at least 6 characters")
	}

	var existing db.User
	err := s.db.Where("email = ?", trimmedEmail).First(&existing).Error
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := db.User{Email: trimmedEmail, Password: string(hashed)}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return identityFromUser(&user), nil
}

// SignIn 校验邮箱与密码并返回身份
func (s *AuthService) SignIn(email, password string) (*state.Identity, error) {
	trimmedEmail := strings.ToLower(strings.TrimSpace(email))

	var user db.User
	if err := s.db.Where("email = ?", trimmedEmail).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return identityFromUser(&user), nil
}

// SignOut 本实现没有远端会话需要撤销，HTTP 层的 cookie 会话由 handler 负责清理
func (s *AuthService) SignOut(ownerID string) error {
	return nil
}

// UserByOwnerID 按归属方标识取回用户记录
func (s *AuthService) UserByOwnerID(ownerID string) (*db.User, error) {
	id, err := strconv.ParseUint(ownerID, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid owner id %q", ownerID)
	}

	var user db.User
	if err := s.db.First(&user, uint(id)).Error; err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func identityFromUser(user *db.User) *state.Identity {
	return &state.Identity{
		ID:            user.OwnerID(),
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		DisplayName:   user.DisplayName,
		AvatarURL:     user.AvatarURL,
	}
}
