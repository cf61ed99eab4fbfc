package service

import (
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/habitflow/internal/db"
	"github.com/habitflow/internal/state"
)

// ProfileService 负责用户展示信息（昵称、头像）的读取与更新
type ProfileService struct {
	db *gorm.DB
}

// NewProfileService 构造 ProfileService
func NewProfileService(gdb *gorm.DB) *ProfileService {
	return &ProfileService{db: gdb}
}

// Get 返回归属方的身份信息
func (s *ProfileService) Get(ownerID string) (*state.Identity, error) {
	user, err := s.findUser(ownerID)
	if err != nil {
		return nil, err
	}
	return identityFromUser(user), nil
}

// UpdateDisplayName 更新昵称，空字符串表示清除
func (s *ProfileService) UpdateDisplayName(ownerID, displayName string) (*state.Identity, error) {
	user, err := s.findUser(ownerID)
	if err != nil {
		return nil, err
	}

	user.DisplayName = strings.TrimSpace(displayName)
	if err := s.db.Save(user).Error; err != nil {
		return nil, fmt.Errorf("update display name: %w", err)
	}
	return identityFromUser(user), nil
}

// UpdateAvatarURL 更新头像地址
func (s *ProfileService) UpdateAvatarURL(ownerID, avatarURL string) (*state.Identity, error) {
	user, err := s.findUser(ownerID)
	if err != nil {
		return nil, err
	}

	user.AvatarURL = strings.TrimSpace(avatarURL)
	if err := s.db.Save(user).Error; err != nil {
		return nil, fmt.Errorf("update avatar: %w", err)
	}
	return identityFromUser(user), nil
}

func (s *ProfileService) findUser(ownerID string) (*db.User, error) {
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
