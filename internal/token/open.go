package token

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/metaconcert/meco/config"
)

// Open builds the token described by cfg. A fresh ledger is initialized with
// the configured supply minted to the configured owner, and the result is
// sealed into block 1.
func Open(cfg *config.Config) (*Token, error) {
	var (
		st  *State
		err error
	)
	if cfg.Persistent {
		st, err = OpenState(cfg.StorageDir)
	} else {
		st, err = NewMemoryState()
	}
	if err != nil {
		return nil, err
	}

	tok, err := New(Metadata{
		Name:     cfg.Token.Name,
		Symbol:   cfg.Token.Symbol,
		Decimals: cfg.Token.Decimals,
	}, st, NewChain(nil))
	if err != nil {
		st.Close()
		return nil, err
	}
	if tok.Initialized() {
		log.Info().Str("root", st.Root().Hex()).Msg("Resumed token state")
		return tok, nil
	}

	if err := initialize(tok, &cfg.Token); err != nil {
		tok.Close()
		return nil, err
	}
	return tok, nil
}

func initialize(tok *Token, cfg *config.TokenConfig) error {
	owner := cfg.OwnerAddress()
	if owner == (common.Address{}) {
		return errors.New("token.owner is required to initialize a new ledger")
	}
	supply, err := cfg.Supply()
	if err != nil {
		return err
	}
	if _, err := tok.Genesis(owner, supply); err != nil {
		return fmt.Errorf("genesis: %w", err)
	}
	block, err := tok.ProduceBlock()
	if err != nil {
		return fmt.Errorf("seal genesis: %w", err)
	}
	log.Info().
		Str("owner", owner.Hex()).
		Str("supply", supply.Dec()).
		Str("root", block.StateRoot.Hex()).
		Msg("Initialized token")
	return nil
}
