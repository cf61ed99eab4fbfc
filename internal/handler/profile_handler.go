package handler

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

// 头像统一缩放到该边长以内，避免存储原始大图
const avatarMaxEdge = 256

type profilePayload struct {
	DisplayName string `json:"display_name"`
}

// GetProfile 返回当前用户的资料
func (a *API) GetProfile(c *gin.Context) {
	identity, err := a.profiles.Get(currentOwner(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": identity})
}

// UpdateProfile 更新昵称
func (a *API) UpdateProfile(c *gin.Context) {
	var payload profilePayload
	if !bindJSON(c, &payload, "invalid profile payload") {
		return
	}

	identity, err := a.profiles.UpdateDisplayName(currentOwner(c), payload.DisplayName)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to update profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": identity})
}

// GetRecentEvents 返回当前用户最近的习惯事件
func (a *API) GetRecentEvents(c *gin.Context) {
	events, err := a.telemetry.Recent(currentOwner(c), 20)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load events")
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// UploadAvatar 处理头像上传：解码、按比例缩放后以 PNG 落盘
func (a *API) UploadAvatar(c *gin.Context) {
	file, err := c.FormFile("avatar")
	if err != nil {
		respondError(c, http.StatusBadRequest, "avatar file is required")
		return
	}

	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		respondError(c, http.StatusBadRequest, "only image uploads are allowed")
		return
	}

	src, err := file.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "failed to read avatar")
		return
	}
	defer src.Close()

	decoded, _, err := image.Decode(src)
	if err != nil {
		respondError(c, http.StatusBadRequest, "unsupported image format")
		return
	}

	if err := os.MkdirAll(a.uploadDir, 0o755); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to prepare upload directory")
		return
	}

	// 生成唯一文件名
	newFilename := fmt.Sprintf("%s-%s.png", time.Now().Format("20060102"), uuid.New().String())
	filePath := filepath.Join(a.uploadDir, newFilename)

	out, err := os.Create(filePath)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to save avatar")
		return
	}
	defer out.Close()

	if err := png.Encode(out, scaleAvatar(decoded)); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to encode avatar")
		return
	}

	avatarURL := fmt.Sprintf("%s/%s", strings.TrimRight(a.uploadURL, "/"), newFilename)
	identity, err := a.profiles.UpdateAvatarURL(currentOwner(c), avatarURL)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to update avatar")
		return
	}

	c.JSON(http.StatusOK, gin.H{"identity": identity, "avatar_url": avatarURL})
}

// scaleAvatar 将图片等比缩放到 avatarMaxEdge 以内，已足够小时原样返回
func scaleAvatar(src image.Image) image.Image {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= avatarMaxEdge && height <= avatarMaxEdge {
		return src
	}

	scale := float64(avatarMaxEdge) / float64(width)
	if height > width {
		scale = float64(avatarMaxEdge) / float64(height)
	}

	dst := image.NewRGBA(image.Rect(0, 0,
		int(float64(width)*scale), int(float64(height)*scale)))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}
