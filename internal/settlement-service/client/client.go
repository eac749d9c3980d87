// Package client é o cliente HTTP tipado da API de liquidação.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/radieske/parimutuel-settlement/internal/domain"
	"github.com/radieske/parimutuel-settlement/internal/settlement-service/dto"
)

const callerHeader = "X-Caller-Address"

// APIError carrega o status e o código devolvidos pelo serviço.
// errors.Is funciona contra os erros de domínio via Unwrap.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("settlement api %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return domain.ErrorForCode(e.Code) }

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Caller  common.Address
}

func New(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

// As devolve uma cópia do cliente que chama como addr
func (c *Client) As(addr common.Address) *Client {
	cp := *c
	cp.Caller = addr
	return &cp
}

// Ether e Wei montam o valor de uma requisição
func Ether(amount string) dto.AmountRequest { return dto.AmountRequest{Amount: amount} }
func Wei(amount string) dto.AmountRequest   { return dto.AmountRequest{AmountWei: amount} }

func (c *Client) Info(ctx context.Context) (dto.InfoResponse, error) {
	var out dto.InfoResponse
	err := c.do(ctx, http.MethodGet, "/v1/info", nil, &out)
	return out, err
}

func (c *Client) Deposit(ctx context.Context, amount dto.AmountRequest) (dto.AccountTxResponse, error) {
	var out dto.AccountTxResponse
	err := c.do(ctx, http.MethodPost, "/v1/reserve/deposit", amount, &out)
	return out, err
}

func (c *Client) Withdraw(ctx context.Context, amount dto.AmountRequest) (dto.AccountTxResponse, error) {
	var out dto.AccountTxResponse
	err := c.do(ctx, http.MethodPost, "/v1/reserve/withdraw", amount, &out)
	return out, err
}

func (c *Client) Payout(ctx context.Context, recipient common.Address, amount dto.AmountRequest) (dto.TxResponse, error) {
	var out dto.TxResponse
	err := c.do(ctx, http.MethodPost, "/v1/reserve/payout", dto.PayoutRequest{AmountRequest: amount, Recipient: recipient.Hex()}, &out)
	return out, err
}

func (c *Client) Balance(ctx context.Context, addr common.Address) (dto.BalanceResponse, error) {
	var out dto.BalanceResponse
	err := c.do(ctx, http.MethodGet, "/v1/reserve/balances/"+addr.Hex(), nil, &out)
	return out, err
}

func (c *Client) Reserve(ctx context.Context) (dto.ReserveResponse, error) {
	var out dto.ReserveResponse
	err := c.do(ctx, http.MethodGet, "/v1/reserve/liquidity", nil, &out)
	return out, err
}

func (c *Client) Wallet(ctx context.Context, addr common.Address) (dto.BalanceResponse, error) {
	var out dto.BalanceResponse
	err := c.do(ctx, http.MethodGet, "/v1/wallets/"+addr.Hex(), nil, &out)
	return out, err
}

func (c *Client) SetSettlement(ctx context.Context, addr common.Address) (dto.TxResponse, error) {
	return c.bind(ctx, "/v1/reserve/settlement", addr)
}

func (c *Client) SetOracle(ctx context.Context, addr common.Address) (dto.TxResponse, error) {
	return c.bind(ctx, "/v1/settlement/oracle", addr)
}

func (c *Client) SetOperator(ctx context.Context, addr common.Address) (dto.TxResponse, error) {
	return c.bind(ctx, "/v1/oracle/operator", addr)
}

func (c *Client) bind(ctx context.Context, path string, addr common.Address) (dto.TxResponse, error) {
	var out dto.TxResponse
	err := c.do(ctx, http.MethodPost, path, dto.AddressRequest{Address: addr.Hex()}, &out)
	return out, err
}

func (c *Client) ReleaseRetained(ctx context.Context) (dto.ReleaseResponse, error) {
	var out dto.ReleaseResponse
	err := c.do(ctx, http.MethodPost, "/v1/reserve/release", struct{}{}, &out)
	return out, err
}

func (c *Client) PlaceBet(ctx context.Context, eventID uint64, outcome string, stake dto.AmountRequest) (dto.BetResponse, error) {
	var out dto.BetResponse
	err := c.do(ctx, http.MethodPost, eventPath(eventID, "/bets"), dto.BetRequest{AmountRequest: stake, Outcome: outcome}, &out)
	return out, err
}

func (c *Client) ResolveEvent(ctx context.Context, eventID uint64) (dto.ResolutionResponse, error) {
	var out dto.ResolutionResponse
	err := c.do(ctx, http.MethodPost, eventPath(eventID, "/resolve"), struct{}{}, &out)
	return out, err
}

func (c *Client) Event(ctx context.Context, eventID uint64) (dto.EventResponse, error) {
	var out dto.EventResponse
	err := c.do(ctx, http.MethodGet, eventPath(eventID, ""), nil, &out)
	return out, err
}

func (c *Client) SetResult(ctx context.Context, eventID uint64, outcome string) (dto.ResultResponse, error) {
	var out dto.ResultResponse
	err := c.do(ctx, http.MethodPut, eventPath(eventID, "/result"), dto.ResultRequest{Outcome: outcome}, &out)
	return out, err
}

func (c *Client) Result(ctx context.Context, eventID uint64) (dto.ResultResponse, error) {
	var out dto.ResultResponse
	err := c.do(ctx, http.MethodGet, eventPath(eventID, "/result"), nil, &out)
	return out, err
}

func (c *Client) Stakes(ctx context.Context, eventID uint64, bettor common.Address) (map[string]string, error) {
	var out map[string]string
	err := c.do(ctx, http.MethodGet, eventPath(eventID, "/stakes/"+bettor.Hex()), nil, &out)
	return out, err
}

// PotentialPrize consulta a projeção; outcomes 0 usa o padrão do serviço
func (c *Client) PotentialPrize(ctx context.Context, stake dto.AmountRequest, outcomes uint8) (dto.PrizeResponse, error) {
	q := url.Values{}
	if stake.AmountWei != "" {
		q.Set("stake_wei", stake.AmountWei)
	} else {
		q.Set("stake", stake.Amount)
	}
	if outcomes > 0 {
		q.Set("outcomes", strconv.Itoa(int(outcomes)))
	}
	var out dto.PrizeResponse
	err := c.do(ctx, http.MethodGet, "/v1/prize?"+q.Encode(), nil, &out)
	return out, err
}

func (c *Client) Faucet(ctx context.Context, addr common.Address, amount dto.AmountRequest) (dto.AccountTxResponse, error) {
	var out dto.AccountTxResponse
	err := c.do(ctx, http.MethodPost, "/v1/faucet", dto.FaucetRequest{AmountRequest: amount, Address: addr.Hex()}, &out)
	return out, err
}

func eventPath(eventID uint64, suffix string) string {
	return "/v1/events/" + strconv.FormatUint(eventID, 10) + suffix
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Caller != (common.Address{}) {
		req.Header.Set(callerHeader, c.Caller.Hex())
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		var e dto.ErrorResponse
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil || e.Code == "" {
			return &APIError{Status: res.StatusCode, Code: "internal", Message: http.StatusText(res.StatusCode)}
		}
		return &APIError{Status: res.StatusCode, Code: e.Code, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
