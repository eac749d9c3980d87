package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/radieske/parimutuel-settlement/internal/chain"
	"github.com/radieske/parimutuel-settlement/internal/domain"
	"github.com/radieske/parimutuel-settlement/internal/settlement-service/dto"
	"github.com/radieske/parimutuel-settlement/internal/shared/units"
)

// errBadRequest marca payloads malformados (400 sem erro de domínio)
var errBadRequest = errors.New("bad request")

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// StatusFor traduz erros de domínio em status HTTP
func StatusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidOutcome), errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotSet), errors.Is(err, domain.ErrResultNotAvailable):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadySet), errors.Is(err, domain.ErrEventAlreadyResolved):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrInsufficientPoolLiquidity),
		errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	code := domain.Code(err)
	if errors.Is(err, errBadRequest) {
		code = "bad_request"
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, dto.ErrorResponse{Error: err.Error(), Code: code})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: bad json: %v", errBadRequest, err)
	}
	return nil
}

// callerFrom lê o chamador do header. Ausente vira endereço zero, que o motor rejeita.
func callerFrom(r *http.Request) (common.Address, error) {
	h := strings.TrimSpace(r.Header.Get(CallerHeader))
	if h == "" {
		return common.Address{}, nil
	}
	return parseAddress(h)
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: invalid address %q", errBadRequest, s)
	}
	return common.HexToAddress(s), nil
}

func addressParam(r *http.Request) (common.Address, error) {
	return parseAddress(chi.URLParam(r, "address"))
}

func eventParam(r *http.Request) (domain.EventID, error) {
	id, err := domain.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return id, nil
}

// parseAmount prioriza wei; senão interpreta como ether decimal
func parseAmount(req dto.AmountRequest) (*uint256.Int, error) {
	var (
		v   *uint256.Int
		err error
	)
	switch {
	case req.AmountWei != "":
		v, err = units.ParseWei(req.AmountWei)
	case req.Amount != "":
		v, err = units.ParseEther(req.Amount)
	default:
		return nil, fmt.Errorf("%w: amount required", domain.ErrInvalidAmount)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidAmount, err)
	}
	return v, nil
}

func txResponse(rc *chain.Receipt) dto.TxResponse {
	return dto.TxResponse{Seq: rc.Seq, Method: rc.Method, CommittedAt: rc.CommittedAt}
}

func balanceResponse(addr common.Address, wei *uint256.Int) dto.BalanceResponse {
	return dto.BalanceResponse{Address: addr.Hex(), BalanceWei: wei.Dec(), Balance: units.FormatEther(wei)}
}
