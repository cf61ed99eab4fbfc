package state

import "sync"

// AuthState 标识会话存储当前所处的状态
type AuthState string

const (
	AuthSignedOut      AuthState = "signed_out"
	AuthAuthenticating AuthState = "authenticating"
	AuthSignedIn       AuthState = "signed_in"
)

// Identity 是身份协作方返回的用户身份值
type Identity struct {
	ID            string `json:"id"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified"`
	DisplayName   string `json:"display_name,omitempty"`
	AvatarURL     string `json:"avatar_url,omitempty"`
}

// IdentityService 是外部身份协作方的接口
// SignOut 对无远端会话概念的实现可以是空操作
type IdentityService interface {
	SignUp(email, password string) (*Identity, error)
	SignIn(email, password string) (*Identity, error)
	SignOut(ownerID string) error
}

// SessionStore 持有已登录身份，并向订阅方发布身份变更事件
// 每次操作都会先清除上一次的错误，并保证无论成败都恢复到非加载状态
type SessionStore struct {
	identity IdentityService

	mu           sync.Mutex
	state        AuthState
	current      *Identity
	errMsg       string
	listeners    map[int]func(identity *Identity)
	nextListener int
}

// NewSessionStore 构造处于登出状态的会话存储
func NewSessionStore(identity IdentityService) *SessionStore {
	return &SessionStore{
		identity:  identity,
		state:     AuthSignedOut,
		listeners: make(map[int]func(identity *Identity)),
	}
}

// SignUp 注册新账号并直接进入登录态
func (s *SessionStore) SignUp(email, password string) error {
	return s.authenticate(func() (*Identity, error) {
		return s.identity.SignUp(email, password)
	})
}

// SignIn 使用邮箱与密码登录
func (s *SessionStore) SignIn(email, password string) error {
	return s.authenticate(func() (*Identity, error) {
		return s.identity.SignIn(email, password)
	})
}

func (s *SessionStore) authenticate(attempt func() (*Identity, error)) error {
	s.mu.Lock()
	s.errMsg = ""
	s.state = AuthAuthenticating
	s.mu.Unlock()

	identity, err := attempt()

	s.mu.Lock()
	if err != nil {
		s.state = AuthSignedOut
		s.current = nil
		s.errMsg = err.Error()
		s.mu.Unlock()
		s.publish(nil)
		return err
	}
	s.state = AuthSignedIn
	s.current = identity
	s.mu.Unlock()
	s.publish(identity)
	return nil
}

// SignOut 结束当前会话；即使协作方调用失败也保证回到登出状态
func (s *SessionStore) SignOut() error {
	s.mu.Lock()
	s.errMsg = ""
	s.state = AuthAuthenticating
	current := s.current
	s.mu.Unlock()

	var err error
	if current != nil {
		err = s.identity.SignOut(current.ID)
	}

	s.mu.Lock()
	s.state = AuthSignedOut
	s.current = nil
	if err != nil {
		s.errMsg = err.Error()
	}
	s.mu.Unlock()
	s.publish(nil)
	return err
}

// Current 返回当前身份（未登录时为 nil）与会话状态
func (s *SessionStore) Current() (*Identity, AuthState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, s.state
	}
	identity := *s.current
	return &identity, s.state
}

// Err 返回最近一次失败的描述，成功的操作会将其清空
func (s *SessionStore) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// OnIdentityChange 注册身份变更订阅，登出事件以 nil 身份表示
// 返回的移除函数可安全地重复调用
func (s *SessionStore) OnIdentityChange(fn func(identity *Identity)) func() {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *SessionStore) publish(identity *Identity) {
	s.mu.Lock()
	fns := make([]func(*Identity), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(identity)
	}
}
