package handler

import (
	"context"

	"github.com/Rrens/groqchat/internal/domain"
	"github.com/Rrens/groqchat/internal/service"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ChatService is the conversation API the handlers depend on
type ChatService interface {
	Current(ctx context.Context, clientKey string) (*domain.Session, error)
	Send(ctx context.Context, clientKey, text string) (*service.Reply, error)
	Reset(ctx context.Context, clientKey string) (*domain.Session, error)
}

// validationMessages flattens validator errors into field -> message
func validationMessages(err error) (map[string]string, bool) {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil, false
	}

	errors := make(map[string]string)
	for _, e := range validationErrors {
		field := e.Field()
		tag := e.Tag()
		switch tag {
		case "required":
			errors[field] = "field is required"
		case "max":
			errors[field] = "must be at most " + e.Param() + " characters"
		default:
			errors[field] = "validation failed on " + tag
		}
	}
	return errors, true
}
