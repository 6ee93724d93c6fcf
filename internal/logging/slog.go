package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Attribute keys shared by every package.
const (
	KeyOperation  = "operation"
	KeyService    = "service"
	KeyUserHash   = "user_hash"
	KeyUserDomain = "user_domain"
	KeyThread     = "thread_id"
	KeyMessage    = "message_id"
	KeyAttachment = "attachment_id"
	KeyAction     = "action"
	KeyDuration   = "duration"
	KeyStatus     = "status"
	KeyError      = "error"
)

// sensitiveKeys are attribute keys whose values are masked by the
// handlers New builds.
var sensitiveKeys = map[string]bool{
	"access_token":  true,
	"refresh_token": true,
	"id_token":      true,
	"code":          true,
	"client_secret": true,
}

func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

func WithService(logger *slog.Logger, service string) *slog.Logger {
	return logger.With(slog.String(KeyService, service))
}

// WithUser returns a logger carrying the user's hash and email domain.
// The address itself is never logged.
func WithUser(logger *slog.Logger, email string) *slog.Logger {
	return logger.With(UserHash(email), Domain(email))
}

func Thread(id string) slog.Attr {
	return slog.String(KeyThread, id)
}

func Message(id string) slog.Attr {
	return slog.String(KeyMessage, id)
}

// Attachment keeps a 16 character prefix of a Gmail attachment id. The
// full ids are several hundred characters long.
func Attachment(id string) slog.Attr {
	if len(id) > 16 {
		id = id[:16]
	}
	return slog.String(KeyAttachment, id)
}

func Action(action string) slog.Attr {
	return slog.String(KeyAction, action)
}

func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration(KeyDuration, d)
}

// Err returns the error attribute, or an empty group that slog drops when
// err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail returns a stable, case-insensitive hash of email.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(strings.ToLower(email)))
	return "user:" + hex.EncodeToString(hash[:8])
}

func UserHash(email string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeEmail(email))
}

// Domain returns the lower-cased email domain attribute.
func Domain(email string) slog.Attr {
	domain := ""
	if at := strings.LastIndexByte(email, '@'); at > 0 {
		domain = strings.ToLower(email[at+1:])
	}
	return slog.String(KeyUserDomain, domain)
}

// SanitizeToken describes a secret by its length only.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}

// redact is a slog ReplaceAttr func masking sensitiveKeys.
func redact(_ []string, a slog.Attr) slog.Attr {
	if sensitiveKeys[a.Key] && a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, SanitizeToken(a.Value.String()))
	}
	return a
}
