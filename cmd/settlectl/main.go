// settlectl opera o serviço de liquidação pela API HTTP.
//
//	settlectl -as 0xabc... deposit -amount 5
//	settlectl -as 0xabc... bet -event 7 -outcome home -amount 1
//	settlectl -as 0xop... result -event 7 -outcome home
//	settlectl resolve -event 7
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/radieske/parimutuel-settlement/internal/settlement-service/client"
	"github.com/radieske/parimutuel-settlement/internal/settlement-service/dto"
)

const usage = `usage: settlectl [-url URL] [-as ADDRESS] <command> [flags]

commands:
  info                                   endereços dos componentes e sequência
  deposit   -amount|-wei                 deposita na reserva
  withdraw  -amount|-wei                 saca da reserva
  balance   [-address]                   saldo registrado na reserva
  wallet    [-address]                   saldo nativo da carteira
  reserve                                liquidez, escrow e retido
  bet       -event -outcome -amount|-wei aposta num resultado
  result    -event [-outcome]            grava (com -outcome) ou lê o resultado
  resolve   -event                       liquida o evento
  event     -event                       totais do evento
  prize     -amount|-wei [-outcomes]     projeção de prêmio
  release                                devolve apostas retidas à liquidez (owner)
  bind      -target settlement|oracle|operator -address
  faucet    -address -amount|-wei        credita carteira (dev)
`

func main() {
	global := flag.NewFlagSet("settlectl", flag.ExitOnError)
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	baseURL := global.String("url", envOr("SETTLEMENT_URL", "http://localhost:8084"), "URL do serviço")
	as := global.String("as", os.Getenv("SETTLEMENT_CALLER"), "endereço do chamador")
	timeout := global.Duration("timeout", 5*time.Second, "timeout por requisição")
	_ = global.Parse(os.Args[1:])

	if global.NArg() == 0 {
		global.Usage()
		os.Exit(2)
	}

	c := client.New(*baseURL)
	if *as != "" {
		if !common.IsHexAddress(*as) {
			fail(fmt.Errorf("invalid -as address %q", *as))
		}
		c = c.As(common.HexToAddress(*as))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	out, err := runCommand(ctx, c, global.Arg(0), global.Args()[1:])
	if err != nil {
		fail(err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}

func runCommand(ctx context.Context, c *client.Client, cmd string, args []string) (any, error) {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	amount := fs.String("amount", "", "valor em ether")
	wei := fs.String("wei", "", "valor em wei")
	event := fs.Uint64("event", 0, "id do evento")
	outcome := fs.String("outcome", "", "home | draw | away")
	address := fs.String("address", "", "endereço")
	target := fs.String("target", "", "settlement | oracle | operator")
	outcomes := fs.Uint("outcomes", 0, "quantidade de resultados (1..3)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	value := dto.AmountRequest{Amount: *amount, AmountWei: *wei}
	addrOr := func(def common.Address) (common.Address, error) {
		if *address == "" {
			if def == (common.Address{}) {
				return common.Address{}, errors.New("-address required")
			}
			return def, nil
		}
		if !common.IsHexAddress(*address) {
			return common.Address{}, fmt.Errorf("invalid address %q", *address)
		}
		return common.HexToAddress(*address), nil
	}

	switch cmd {
	case "info":
		return c.Info(ctx)
	case "deposit":
		return c.Deposit(ctx, value)
	case "withdraw":
		return c.Withdraw(ctx, value)
	case "balance":
		addr, err := addrOr(c.Caller)
		if err != nil {
			return nil, err
		}
		return c.Balance(ctx, addr)
	case "wallet":
		addr, err := addrOr(c.Caller)
		if err != nil {
			return nil, err
		}
		return c.Wallet(ctx, addr)
	case "reserve":
		return c.Reserve(ctx)
	case "bet":
		return c.PlaceBet(ctx, *event, *outcome, value)
	case "result":
		if *outcome == "" {
			return c.Result(ctx, *event)
		}
		return c.SetResult(ctx, *event, *outcome)
	case "resolve":
		return c.ResolveEvent(ctx, *event)
	case "event":
		return c.Event(ctx, *event)
	case "prize":
		if *outcomes > 255 {
			return nil, fmt.Errorf("-outcomes out of range")
		}
		return c.PotentialPrize(ctx, value, uint8(*outcomes))
	case "release":
		return c.ReleaseRetained(ctx)
	case "bind":
		addr, err := addrOr(common.Address{})
		if err != nil {
			return nil, err
		}
		switch *target {
		case "settlement":
			return c.SetSettlement(ctx, addr)
		case "oracle":
			return c.SetOracle(ctx, addr)
		case "operator":
			return c.SetOperator(ctx, addr)
		default:
			return nil, fmt.Errorf("unknown -target %q", *target)
		}
	case "faucet":
		addr, err := addrOr(c.Caller)
		if err != nil {
			return nil, err
		}
		return c.Faucet(ctx, addr, value)
	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func fail(err error) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		fmt.Fprintf(os.Stderr, "error: %s (%s, http %d)\n", apiErr.Message, apiErr.Code, apiErr.Status)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
