package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rohit-710/wallet-bounce/client/internal/api"
	"github.com/rohit-710/wallet-bounce/client/internal/game"
	"github.com/rohit-710/wallet-bounce/client/internal/netcfg"
	"github.com/rohit-710/wallet-bounce/client/internal/wallet"
	"github.com/rohit-710/wallet-bounce/shared/leaderboard"
	"github.com/rohit-710/wallet-bounce/shared/protocol"
)

const (
	keyAPI      = "api"
	keyProfile  = "profile"
	keyWallet   = "wallet"
	keyKeypair  = "keypair"
	keyAddress  = "address"
	keyLogLevel = "log-level"

	tokenFile = "token"
)

// app is what every subcommand needs once flags and env are resolved.
type app struct {
	v      *viper.Viper
	log    *zerolog.Logger
	dir    string
	client *api.Client
	wallet wallet.Wallet
	store  *leaderboard.Store
}

func newRootCmd(logger *zerolog.Logger) *cobra.Command {
	v := viper.New()
	a := &app{v: v, log: logger}

	root := &cobra.Command{
		Use:           "bounce",
		Short:         "Wallet Bounce: play, record high scores and claim SOL rewards",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.String(keyAPI, netcfg.APIBase(), "reward server base URL")
	pf.String(keyProfile, "", "local profile name")
	pf.String(keyWallet, "", "wallet kind: keypair or watch")
	pf.String(keyKeypair, "", "path to a solana-keygen keypair file")
	pf.String(keyAddress, "", "wallet address for a watch-only wallet")
	pf.String(keyLogLevel, "info", "log level")

	_ = v.BindPFlags(pf)
	_ = v.BindEnv(keyAPI, netcfg.EnvAPIBase)
	_ = v.BindEnv(keyProfile, netcfg.EnvProfile)
	_ = v.BindEnv(keyWallet, netcfg.EnvWallet)
	_ = v.BindEnv(keyKeypair, netcfg.EnvKeypair)
	_ = v.BindEnv(keyAddress, netcfg.EnvAddress)

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return a.init()
	}

	root.AddCommand(
		a.playCmd(),
		a.recordCmd(),
		a.leaderboardCmd(),
		a.claimCmd(),
		a.statusCmd(),
		a.loginCmd(),
	)
	return root
}

func (a *app) init() error {
	if lvl, err := zerolog.ParseLevel(a.v.GetString(keyLogLevel)); err == nil {
		*a.log = a.log.Level(lvl)
	}

	dir, err := netcfg.ConfigDir(a.v.GetString(keyProfile))
	if err != nil {
		return fmt.Errorf("config dir: %w", err)
	}
	a.dir = dir
	a.store = leaderboard.NewStore(dir)
	a.client = api.New(a.v.GetString(keyAPI))

	if tok, err := os.ReadFile(filepath.Join(dir, tokenFile)); err == nil {
		a.client.SetToken(strings.TrimSpace(string(tok)))
	}

	a.log.Debug().Str("dir", dir).Str("api", a.client.Base()).Msg("profile loaded")
	return nil
}

// openWallet resolves the wallet on first use; commands that only look up
// transactions never need one.
func (a *app) openWallet() (wallet.Wallet, error) {
	if a.wallet != nil {
		return a.wallet, nil
	}
	w, err := wallet.Open(a.v.GetString(keyWallet), a.v.GetString(keyKeypair), a.v.GetString(keyAddress))
	if err != nil {
		return nil, fmt.Errorf("wallet: %w", err)
	}
	a.wallet = w
	return w, nil
}

func (a *app) session() (*game.Session, error) {
	w, err := a.openWallet()
	if err != nil {
		return nil, err
	}
	return game.NewSession(a.store, a.client, w, a.log.With().Str("component", "session").Logger()), nil
}

func (a *app) playCmd() *cobra.Command {
	var (
		seed     int64
		miss     float64
		maxTicks int
		claim    bool
		wait     bool
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play one headless game with the autopilot and record the score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			s, err := a.session()
			if err != nil {
				return err
			}

			var saveErr error
			w := game.NewWorld(func(score uint64) {
				best, err := s.OnGameOver(score)
				if err != nil {
					saveErr = err
					return
				}
				if best {
					fmt.Fprintln(cmd.OutOrStdout(), "New personal best!")
				}
			})
			score := game.Play(w, game.NewAutoPilot(seed, miss), maxTicks)
			if !w.Over {
				// ran out of ticks; still counts as a finished game
				if _, err := s.OnGameOver(score); err != nil {
					return err
				}
			}
			if saveErr != nil {
				return saveErr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Game over. Score: %d (ticks %d)\n", score, w.Tick)
			printBoard(cmd, s.Leaderboard(protocol.TopN), s.Address())

			if claim && s.CanClaim() {
				return a.claim(cmd, s, wait)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 0, "autopilot seed; 0 picks one")
	cmd.Flags().Float64Var(&miss, "miss", 0.15, "chance the autopilot misses each return")
	cmd.Flags().IntVar(&maxTicks, "max-ticks", 60*game.TickRate*10, "stop after this many ticks (0 means no limit)")
	cmd.Flags().BoolVar(&claim, "claim", false, "claim the reward when the score is claimable")
	cmd.Flags().BoolVar(&wait, "wait", false, "wait for the reward transaction to confirm")
	return cmd
}

func (a *app) recordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "record <score>",
		Short: "Record a finished game's score for this wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := cast.ToUint64E(args[0])
			if err != nil {
				return fmt.Errorf("invalid score %q: %w", args[0], err)
			}
			s, err := a.session()
			if err != nil {
				return err
			}
			best, err := s.OnGameOver(score)
			if err != nil {
				return err
			}
			if best {
				fmt.Fprintln(cmd.OutOrStdout(), "New personal best!")
			}
			printBoard(cmd, s.Leaderboard(protocol.TopN), s.Address())
			return nil
		},
	}
}

func (a *app) leaderboardCmd() *cobra.Command {
	var (
		n      int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:     "leaderboard",
		Aliases: []string{"lb"},
		Short:   "Show the local leaderboard",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.session()
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(protocol.Leaderboard{Items: s.Leaderboard(n), GeneratedAt: time.Now().UnixMilli()})
			}
			printBoard(cmd, s.Leaderboard(n), s.Address())
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "top", "n", protocol.TopN, "rows to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func (a *app) claimCmd() *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Claim the SOL reward for this wallet's unclaimed best score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.session()
			if err != nil {
				return err
			}
			return a.claim(cmd, s, wait)
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "wait for the reward transaction to confirm")
	return cmd
}

func (a *app) claim(cmd *cobra.Command, s *game.Session, wait bool) error {
	out := cmd.OutOrStdout()
	res, err := s.Claim(cmd.Context())
	switch {
	case errors.Is(err, game.ErrAlreadyClaimed):
		fmt.Fprintln(out, "Reward for this score was already claimed.")
		return nil
	case err != nil:
		return err
	}
	sig := res.Signature
	fmt.Fprintf(out, "Reward sent! Signature: %s\n", sig)
	if res.Explorer != "" {
		fmt.Fprintf(out, "View on explorer: %s\n", res.Explorer)
	}
	if !wait {
		return nil
	}
	st, err := a.client.FollowStatus(cmd.Context(), sig, func(st protocol.TxStatusResult) {
		fmt.Fprintf(out, "  %s\n", st.Status)
	})
	if err != nil {
		a.log.Warn().Err(err).Msg("status stream unavailable, polling")
		st, err = s.WaitConfirmed(cmd.Context(), sig, 2*time.Second, nil)
		if err != nil {
			return err
		}
	}
	fmt.Fprintln(out, st.Message)
	return nil
}

func (a *app) statusCmd() *cobra.Command {
	var (
		wait     bool
		follow   bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "status <signature>",
		Short: "Check a reward transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			show := func(st protocol.TxStatusResult) {
				fmt.Fprintf(out, "%s\t%s\n", st.Status, st.Message)
			}
			sig := args[0]
			switch {
			case follow:
				_, err := a.client.FollowStatus(cmd.Context(), sig, show)
				return err
			case wait:
				_, err := game.WaitConfirmed(cmd.Context(), a.client, sig, interval, show, *a.log)
				return err
			}
			st, err := a.client.CheckTransaction(cmd.Context(), sig)
			if err != nil {
				return err
			}
			show(st)
			return nil
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "poll until confirmed or failed")
	cmd.Flags().BoolVar(&follow, "follow", false, "stream updates over websocket")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "poll interval for --wait")
	return cmd
}

func (a *app) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in with the keypair wallet and store the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := a.openWallet()
			if err != nil {
				return err
			}
			if !w.CanSign() {
				return wallet.ErrCannotSign
			}
			ch, err := a.client.Challenge(cmd.Context(), w.Address())
			if err != nil {
				return err
			}
			sig, err := w.SignMessage([]byte(ch.Message))
			if err != nil {
				return err
			}
			res, err := a.client.Verify(cmd.Context(), w.Address(), sig)
			if err != nil {
				return err
			}
			if err := os.WriteFile(filepath.Join(a.dir, tokenFile), []byte(res.Token), 0o600); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", res.Address)
			return nil
		},
	}
}

func printBoard(cmd *cobra.Command, rows []leaderboard.Entry, me string) {
	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, "Leaderboard is empty.")
		return
	}
	fmt.Fprintln(out, "Leaderboard")
	for i, e := range rows {
		mark := " "
		if e.Address == me {
			mark = "*"
		}
		claimed := ""
		if e.HasClaimedReward {
			claimed = " (claimed)"
		}
		fmt.Fprintf(out, "%s%d. %s  %d%s\n", mark, i+1, shortAddr(e.Address), e.HighScore, claimed)
	}
}

func shortAddr(a string) string {
	if len(a) <= 12 {
		return a
	}
	return a[:4] + "..." + a[len(a)-4:]
}
