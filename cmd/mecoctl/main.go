package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/metaconcert/meco/config"
	"github.com/metaconcert/meco/internal/client"
	"github.com/metaconcert/meco/internal/protocol"
)

var (
	serverURL string
	timeout   time.Duration
	caller    string
)

func main() {
	root := &cobra.Command{
		Use:           "mecoctl",
		Short:         "Command line client for a mecod token server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	defaults := config.Default().Network
	root.PersistentFlags().StringVar(&serverURL, "server", defaults.ServerURL, "token server URL")
	root.PersistentFlags().DurationVar(&timeout, "timeout", defaults.Timeout, "request timeout")
	root.PersistentFlags().StringVar(&caller, "from", "", "caller address")

	root.AddCommand(
		queryCmd("info", "Show token metadata and chain head", 0, func(ctx context.Context, c *client.Client, _ []string) (any, error) {
			return c.Info(ctx)
		}),
		queryCmd("balance <address>", "Show balance and spendable amount", 1, func(ctx context.Context, c *client.Client, args []string) (any, error) {
			addr, err := parseAddress(args[0])
			if err != nil {
				return nil, err
			}
			return c.Balance(ctx, addr)
		}),
		queryCmd("total-locked <holder>", "List the lock entries of a holder", 1, func(ctx context.Context, c *client.Client, args []string) (any, error) {
			addr, err := parseAddress(args[0])
			if err != nil {
				return nil, err
			}
			return c.Locks(ctx, addr)
		}),
		queryCmd("lock-info <holder> <index>", "Show one lock entry", 2, func(ctx context.Context, c *client.Client, args []string) (any, error) {
			addr, err := parseAddress(args[0])
			if err != nil {
				return nil, err
			}
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return nil, fmt.Errorf("invalid index %q", args[1])
			}
			return c.LockInfo(ctx, addr, index)
		}),
		queryCmd("check-lock <holder> <amount>", "Report whether amount is spendable", 2, func(ctx context.Context, c *client.Client, args []string) (any, error) {
			addr, err := parseAddress(args[0])
			if err != nil {
				return nil, err
			}
			amount, err := protocol.ParseAmount(args[1])
			if err != nil {
				return nil, err
			}
			allowed, err := c.CheckLock(ctx, addr, amount)
			if err != nil {
				return nil, err
			}
			return protocol.CheckLockResponse{Address: addr, Amount: amount.Dec(), Allowed: allowed}, nil
		}),
		txCmd("transfer <to> <amount>", "Transfer tokens", 2, func(ctx context.Context, c *client.Client, from common.Address, args []string) (*protocol.TxResponse, error) {
			to, amount, err := addressAmount(args)
			if err != nil {
				return nil, err
			}
			return c.Transfer(ctx, from, to, amount)
		}),
		txCmd("mint <to> <amount>", "Mint new tokens (owner only)", 2, func(ctx context.Context, c *client.Client, from common.Address, args []string) (*protocol.TxResponse, error) {
			to, amount, err := addressAmount(args)
			if err != nil {
				return nil, err
			}
			return c.Mint(ctx, from, to, amount)
		}),
		txCmd("lock <holder> <amount> <due>", "Lock part of a balance until due (unix seconds)", 3, func(ctx context.Context, c *client.Client, from common.Address, args []string) (*protocol.TxResponse, error) {
			holder, amount, err := addressAmount(args)
			if err != nil {
				return nil, err
			}
			due, err := strconv.ParseUint(args[2], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid due %q", args[2])
			}
			return c.Lock(ctx, from, holder, amount, due)
		}),
		txCmd("transfer-with-lockup <to> <amount> <due>", "Transfer tokens that stay locked until due", 3, func(ctx context.Context, c *client.Client, from common.Address, args []string) (*protocol.TxResponse, error) {
			to, amount, err := addressAmount(args)
			if err != nil {
				return nil, err
			}
			due, err := strconv.ParseUint(args[2], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid due %q", args[2])
			}
			return c.TransferWithLockUp(ctx, from, to, amount, due)
		}),
		txCmd("unlock <holder> <index>", "Release one lock entry if it is due", 2, func(ctx context.Context, c *client.Client, from common.Address, args []string) (*protocol.TxResponse, error) {
			holder, err := parseAddress(args[0])
			if err != nil {
				return nil, err
			}
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return nil, fmt.Errorf("invalid index %q", args[1])
			}
			return c.Unlock(ctx, from, holder, index)
		}),
		txCmd("unlock-all <holder>", "Release every due lock entry of a holder", 1, func(ctx context.Context, c *client.Client, from common.Address, args []string) (*protocol.TxResponse, error) {
			holder, err := parseAddress(args[0])
			if err != nil {
				return nil, err
			}
			return c.UnlockAll(ctx, from, holder)
		}),
		txCmd("release-lock <holder>", "Release the due lock entries of a holder (holder or owner only)", 1, func(ctx context.Context, c *client.Client, from common.Address, args []string) (*protocol.TxResponse, error) {
			holder, err := parseAddress(args[0])
			if err != nil {
				return nil, err
			}
			return c.ReleaseLock(ctx, from, holder)
		}),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newClient() *client.Client {
	return client.New(config.NetworkConfig{ServerURL: serverURL, Timeout: timeout})
}

func queryCmd(use, short string, nargs int, fn func(context.Context, *client.Client, []string) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := fn(cmd.Context(), newClient(), args)
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
}

func txCmd(use, short string, nargs int, fn func(context.Context, *client.Client, common.Address, []string) (*protocol.TxResponse, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseAddress(caller)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			resp, err := fn(cmd.Context(), newClient(), from, args)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func addressAmount(args []string) (common.Address, *uint256.Int, error) {
	addr, err := parseAddress(args[0])
	if err != nil {
		return common.Address{}, nil, err
	}
	amount, err := protocol.ParseAmount(args[1])
	if err != nil {
		return common.Address{}, nil, err
	}
	return addr, amount, nil
}
