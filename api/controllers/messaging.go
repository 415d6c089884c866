package controllers

import (
	"net/http"

	"github.com/fami1212/modern-e-library-hub/api/responses"
	"github.com/fami1212/modern-e-library-hub/api/validators"
	"github.com/fami1212/modern-e-library-hub/internal/messaging"
	"github.com/fami1212/modern-e-library-hub/pkg/logger"
)

type sendMessagePayload struct {
	Content string `json:"content" validate:"required,max=5000"`
}

// ConversationStart opens a support thread with its first message.
func ConversationStart(svc messaging.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ident, err := identity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var input messaging.StartConversationInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.StartConversation(ctx, ident, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

// ConversationClose ends a thread; staff only, idempotent.
func ConversationClose(svc messaging.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ident, err := identity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		conversationID, err := pathUUID(r, "conversationId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.CloseConversation(ctx, ident, conversationID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func ConversationList(svc messaging.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ident, err := identity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.ListConversations(ctx, ident, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func MessageSend(svc messaging.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ident, err := identity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		conversationID, err := pathUUID(r, "conversationId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload sendMessagePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.SendMessage(ctx, ident, conversationID, payload.Content)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

// MessageList pages through a thread and marks the counterpart's messages read.
func MessageList(svc messaging.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ident, err := identity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		conversationID, err := pathUUID(r, "conversationId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.ListMessages(ctx, ident, conversationID, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func ConversationUnreadCount(svc messaging.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ident, err := identity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		conversationID, err := pathUUID(r, "conversationId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		count, err := svc.UnreadCount(ctx, ident, conversationID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"unread": count})
	}
}
