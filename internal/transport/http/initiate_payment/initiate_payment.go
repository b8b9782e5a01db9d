package initiatepayment

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/payment"
	"github.com/corray333/backend-labs/foodorder/internal/service/services/paymentsvc"
	"github.com/corray333/backend-labs/foodorder/internal/transport/http/respond"
	"github.com/corray333/backend-labs/foodorder/pkg/http/middleware/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type service interface {
	Initiate(ctx context.Context, req paymentsvc.InitiateRequest) (payment.Session, error)
}

type initiatePaymentRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// InitiatePayment opens a checkout session for one of the caller's orders.
//
//	@Summary	Start payment
//	@Tags		payments
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string					true	"Order ID"
//	@Param		payer	body		initiatePaymentRequest	true	"Payer"
//	@Success	201		{object}	payment.Session
//	@Failure	409		{object}	respond.ErrorResponse
//	@Failure	502		{object}	respond.ErrorResponse
//	@Router		/api/orders/{id}/payments [post]
func InitiatePayment(w http.ResponseWriter, r *http.Request, service service) {
	userID, ok := auth.RequireUserID(w, r)
	if !ok {
		return
	}

	req := initiatePaymentRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Message(w, http.StatusBadRequest, err.Error())
		slog.Error("Error decoding request body for initiate payment", "error", err)

		return
	}

	if err := validator.New().Struct(&req); err != nil {
		respond.Message(w, http.StatusBadRequest, err.Error())

		return
	}

	session, err := service.Initiate(r.Context(), paymentsvc.InitiateRequest{
		OrderID: chi.URLParam(r, "id"),
		UserID:  userID,
		Email:   req.Email,
	})
	if err != nil {
		respond.Error(w, err)

		return
	}

	respond.JSON(w, http.StatusCreated, session)
}
