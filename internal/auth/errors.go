package auth

import "errors"

var (
	// ErrInvalidCredentials — неверное имя пользователя или пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken — токен не прошёл проверку (подпись, срок, формат).
	ErrInvalidToken = errors.New("invalid or expired token")
)
