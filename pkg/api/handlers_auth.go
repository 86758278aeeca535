package api

import (
	"encoding/json"
	"net/http"

	"github.com/Aaron-1990/line-routing/pkg/logging"
	"github.com/Aaron-1990/line-routing/pkg/validation"
)

// handleLogin exchanges username/password credentials for a JWT.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !s.authEnabled {
		s.respondError(w, http.StatusServiceUnavailable, "Authentication is not enabled")
		return
	}

	var req validation.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := validation.ValidateLoginRequest(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Same response for unknown user and wrong password, so login
	// attempts cannot probe which usernames exist.
	user, err := s.userStore.GetUserByUsername(req.Username)
	if err != nil || !s.userStore.VerifyPassword(user, req.Password) {
		s.reg.AuthFailuresTotal.Inc()
		s.logger.Warn("failed login attempt", logging.String("username", req.Username))
		s.respondError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token, err := s.jwtManager.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, s.sanitizeError("generate token", err))
		return
	}
	s.reg.TokensIssuedTotal.Inc()

	s.logger.Info("user logged in",
		logging.String("username", user.Username),
		logging.String("role", user.Role),
	)

	s.respondJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(s.jwtManager.GetTokenDuration().Seconds()),
		Username:  user.Username,
		Role:      user.Role,
	})
}
