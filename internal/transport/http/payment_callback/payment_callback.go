package paymentcallback

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/corray333/backend-labs/foodorder/internal/service/services/paymentsvc"
	"github.com/corray333/backend-labs/foodorder/internal/transport/http/respond"
	"github.com/gorilla/schema"
)

type service interface {
	HandleCallback(ctx context.Context, params paymentsvc.CallbackParams) (paymentsvc.Result, error)
}

// Redirects holds the pages the user is sent to after the callback.
type Redirects struct {
	InProgressURL string
	CartURL       string
}

var decoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)

	return d
}()

// target picks the page for a reconciled callback. Duplicates go to the order
// page since the first signal already settled the order.
func (rd Redirects) target(result paymentsvc.Result, orderID string) string {
	base := rd.CartURL
	if result.Duplicate || result.Route == paymentsvc.RouteOrderInProgress {
		base = rd.InProgressURL
	}

	u, err := url.Parse(base)
	if err != nil || orderID == "" {
		return base
	}
	q := u.Query()
	q.Set("orderId", orderID)
	u.RawQuery = q.Encode()

	return u.String()
}

// PaymentCallback reconciles the gateway return path and redirects the browser.
//
//	@Summary	Gateway return path
//	@Tags		payments
//	@Param		status		query	string	false	"Gateway status"
//	@Param		reference	query	string	true	"Payment reference"
//	@Param		orderId		query	string	true	"Order ID"
//	@Success	302
//	@Failure	400	{object}	respond.ErrorResponse
//	@Router		/api/payments/callback [get]
func PaymentCallback(w http.ResponseWriter, r *http.Request, service service, redirects Redirects) {
	params := paymentsvc.CallbackParams{}
	if err := decoder.Decode(&params, r.URL.Query()); err != nil {
		respond.Message(w, http.StatusBadRequest, err.Error())
		slog.Error("Error decoding payment callback", "error", err)

		return
	}

	result, err := service.HandleCallback(r.Context(), params)
	if err != nil && respond.StatusOf(err) == http.StatusBadRequest {
		respond.Error(w, err)

		return
	}
	if err != nil {
		slog.Warn("Payment callback not applied", "reference", params.Reference, "error", err)
	}

	http.Redirect(w, r, redirects.target(result, params.OrderID), http.StatusFound)
}
