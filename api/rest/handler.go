package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/thecardroom/tcr/api"
	"github.com/thecardroom/tcr/common/utils"
	prt "github.com/thecardroom/tcr/protocol"
	"github.com/thecardroom/tcr/storage"
)

// get home response
func HomeHandler(w http.ResponseWriter, r *http.Request) {
	info := map[string]string{
		"name":    "tcr mint runner API",
		"version": "1.0.0",
	}
	sendResp(w, http.StatusOK, info, nil)
}

// get runner status response
func GetStatus(network string, runner Runner, payments PaymentReader, hub *api.WSHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := payments.CountByStatus()
		if err != nil {
			sendResp(w, http.StatusInternalServerError, nil, err)
			return
		}
		resp := StatusResp{
			Network:   network,
			Payments:  counts,
			WSClients: hub.GetClientCount(),
		}
		if runner != nil {
			snap := runner.Snapshot()
			resp.Runner = &snap
		}
		sendResp(w, http.StatusOK, resp, nil)
	}
}

// get payment list response
func GetPayments(payments PaymentReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := storage.PaymentStatus(r.URL.Query().Get("status"))
		if status != "" && !validStatus(status) {
			sendResp(w, http.StatusBadRequest, nil, fmt.Errorf("unknown status %q", status))
			return
		}
		list, err := payments.Payments(status)
		if err != nil {
			sendResp(w, http.StatusInternalServerError, nil, err)
			return
		}
		resp := PaymentListResp{Payments: make([]PaymentResp, 0, len(list)), Total: len(list)}
		for _, p := range list {
			resp.Payments = append(resp.Payments, formatPaymentResp(p))
		}
		sendResp(w, http.StatusOK, resp, nil)
	}
}

// get payment by id response
func GetPayment(payments PaymentReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := parsePaymentID(mux.Vars(r)["id"])
		if err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}
		p, err := payments.GetPayment(ref)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				sendResp(w, http.StatusNotFound, nil, err)
				return
			}
			sendResp(w, http.StatusInternalServerError, nil, err)
			return
		}
		sendResp(w, http.StatusOK, formatPaymentResp(p), nil)
	}
}

// get websocket status response
func GetWSStatus(hub *api.WSHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sendResp(w, http.StatusOK, map[string]int{"clients": hub.GetClientCount()}, nil)
	}
}

// parsePaymentID accepts "txhash#index", "txhash.index" (no escaping
// needed in a URL) or a bare tx hash for output 0.
func parsePaymentID(id string) (prt.UTxORef, error) {
	if !strings.ContainsAny(id, "#.") {
		id += "#0"
	}
	return prt.ParseUTxORef(strings.Replace(id, ".", "#", 1))
}

func validStatus(s storage.PaymentStatus) bool {
	for _, st := range storage.PaymentStatuses {
		if st == s {
			return true
		}
	}
	return false
}

func formatPaymentResp(p *storage.Payment) PaymentResp {
	return PaymentResp{
		ID:        p.Ref.String(),
		Drop:      p.Drop,
		Payer:     p.Payer,
		Lovelace:  p.Lovelace,
		Ada:       utils.FormatAda(p.Lovelace),
		Count:     p.Count,
		Presale:   p.Presale,
		Status:    string(p.Status),
		Tokens:    p.Tokens,
		TxHash:    p.TxHash,
		Reason:    p.Reason,
		UpdatedAt: p.UpdatedAt.Unix(),
	}
}

func sendResp(w http.ResponseWriter, statusCode int, data interface{}, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := RestResp{
		Success: err == nil,
		Data:    data,
	}

	if err != nil {
		response.Error = err.Error()
	}

	json.NewEncoder(w).Encode(response)
}
