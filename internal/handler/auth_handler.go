package handler

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type credentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register 注册新账号并直接建立会话
func (a *API) Register(c *gin.Context) {
	var payload credentialsPayload
	if !bindJSON(c, &payload, "invalid register payload") {
		return
	}

	identity, err := a.auth.SignUp(payload.Email, payload.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if !saveOwnerSession(c, identity.ID) {
		return
	}

	c.JSON(http.StatusCreated, gin.H{"identity": identity})
}

// Login 处理登录请求
func (a *API) Login(c *gin.Context) {
	var payload credentialsPayload
	if !bindJSON(c, &payload, "invalid login payload") {
		return
	}

	identity, err := a.auth.SignIn(payload.Email, payload.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if !saveOwnerSession(c, identity.ID) {
		return
	}

	c.JSON(http.StatusOK, gin.H{"identity": identity})
}

// Logout 结束会话并拆除该用户的同步存储
func (a *API) Logout(c *gin.Context) {
	ownerID := currentOwner(c)
	if ownerID != "" {
		a.habits.Release(ownerID)
	}

	session := sessions.Default(c)
	session.Clear()
	session.Save()

	c.JSON(http.StatusOK, gin.H{"status": "signed_out"})
}

// Me 返回当前会话的身份信息
func (a *API) Me(c *gin.Context) {
	ownerID := currentOwner(c)
	if ownerID == "" {
		respondError(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	identity, err := a.profiles.Get(ownerID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load identity")
		return
	}

	c.JSON(http.StatusOK, gin.H{"identity": identity})
}

// AuthRequired 是会话认证中间件，未登录的请求直接以 401 拒绝
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentOwner(c) == "" {
			respondError(c, http.StatusUnauthorized, "not authenticated")
			c.Abort()
			return
		}
		c.Next()
	}
}

func saveOwnerSession(c *gin.Context, ownerID string) bool {
	session := sessions.Default(c)
	session.Set(sessionOwnerKey, ownerID)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to save session")
		return false
	}
	return true
}
