package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/mr-tron/base58"
	"github.com/samber/do/v2"
	"github.com/vreid/dareme/internal/pkg/common"
	"github.com/vreid/dareme/internal/pkg/crank"
	"github.com/vreid/dareme/internal/pkg/escrow"
	"github.com/vreid/dareme/internal/pkg/identity"
	"github.com/vreid/dareme/internal/pkg/notification"
	"github.com/vreid/dareme/internal/pkg/proof"

	"github.com/urfave/cli/v3"
)

var errInvalidAmount = errors.New("amount must be greater than zero")

type DareMeService struct {
	EchoService *common.EchoService `do:""`

	DatabaseService     *common.DatabaseService           `do:""`
	EscrowService       *escrow.EscrowService             `do:""`
	NotificationService *notification.NotificationService `do:""`
	ProofService        *proof.ProofService               `do:""`
	CrankService        *crank.CrankService               `do:""`
}

func newInjector(cmd *cli.Command) (do.Injector, error) {
	i := do.New()

	do.ProvideNamedValue(i, "data-dir", cmd.String("data-dir"))
	do.ProvideValue[clockwork.Clock](i, clockwork.NewRealClock())

	operator := identity.Zero

	if raw := cmd.String("operator"); raw != "" {
		var err error

		operator, err = identity.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse operator: %w", err)
		}
	}

	if operator.IsZero() {
		var err error

		operator, _, err = identity.Generate()
		if err != nil {
			return nil, err
		}
	}

	do.ProvideNamedValue(i, "crank-operator", operator)
	do.ProvideNamedValue(i, "crank-interval", cmd.Duration("crank-interval"))

	do.Provide(i, common.NewDatabaseService)
	do.Provide(i, escrow.NewEscrowService)
	do.Provide(i, crank.NewCrankService)

	return i, nil
}

func runServer(ctx context.Context, cmd *cli.Command) error {
	i, err := newInjector(cmd)
	if err != nil {
		return err
	}

	do.ProvideNamedValue(i, "port", cmd.Int("port"))
	do.ProvideNamedValue(i, "proof-dir", cmd.String("proof-dir"))

	do.Provide(i, common.NewEchoService)
	do.Provide(i, proof.NewProofService)
	do.Provide(i, notification.NewNotificationService)

	do.Provide(i, do.InvokeStruct[DareMeService])

	dareMeService, err := do.Invoke[DareMeService](i)
	if err != nil {
		return fmt.Errorf("failed to create dareme service: %w", err)
	}

	dareMeService.EchoService.Register(dareMeService.EscrowService.Routes)
	dareMeService.EchoService.Register(dareMeService.NotificationService.Routes)
	dareMeService.EchoService.Register(dareMeService.ProofService.Routes)

	if cmd.Bool("crank") {
		err = dareMeService.CrankService.Start()
		if err != nil {
			return err
		}
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second) //nolint:mnd
		defer cancel()

		err := dareMeService.EchoService.Shutdown(shutdownCtx)
		if err != nil {
			log.Print(err)
		}
	}()

	err = dareMeService.EchoService.Start()

	if shutdownErr := dareMeService.CrankService.Shutdown(); shutdownErr != nil {
		log.Print(shutdownErr)
	}

	if shutdownErr := dareMeService.DatabaseService.Shutdown(); shutdownErr != nil {
		log.Print(shutdownErr)
	}

	//nolint:wrapcheck
	return err
}

func runCrank(_ context.Context, cmd *cli.Command) error {
	i, err := newInjector(cmd)
	if err != nil {
		return err
	}

	crankService := do.MustInvoke[*crank.CrankService](i)

	defer func() {
		_ = crankService.EscrowService.DatabaseService.Shutdown()
	}()

	expired, err := crankService.Sweep()
	if err != nil {
		return err
	}

	log.Printf("expired %d dares", expired)

	return nil
}

func runFund(_ context.Context, cmd *cli.Command) error {
	account, err := identity.Parse(cmd.String("account"))
	if err != nil {
		return fmt.Errorf("failed to parse account: %w", err)
	}

	amount := cmd.Int("amount")
	if amount <= 0 {
		return errInvalidAmount
	}

	i, err := newInjector(cmd)
	if err != nil {
		return err
	}

	escrowService := do.MustInvoke[*escrow.EscrowService](i)

	defer func() {
		_ = escrowService.DatabaseService.Shutdown()
	}()

	//nolint:gosec
	balance, err := escrowService.Fund(account, uint64(amount))
	if err != nil {
		return err
	}

	fmt.Printf("%s %d\n", account, balance)

	return nil
}

func runKeygen(_ context.Context, _ *cli.Command) error {
	key, privateKey, err := identity.Generate()
	if err != nil {
		return err
	}

	fmt.Printf("public:  %s\nprivate: %s\n", key, base58.Encode(privateKey))

	return nil
}

func runInspect(_ context.Context, cmd *cli.Command) error {
	challenger, err := identity.Parse(cmd.String("challenger"))
	if err != nil {
		return fmt.Errorf("failed to parse challenger: %w", err)
	}

	i, err := newInjector(cmd)
	if err != nil {
		return err
	}

	escrowService := do.MustInvoke[*escrow.EscrowService](i)

	defer func() {
		_ = escrowService.DatabaseService.Shutdown()
	}()

	//nolint:gosec
	view, err := escrowService.LoadDare(escrow.DareRef{Challenger: challenger, DareID: uint64(cmd.Int("id"))})
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dare: %w", err)
	}

	fmt.Println(string(data))

	return nil
}

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "data-dir",
			Value:   "./dareme/data",
			Sources: cli.EnvVars("DAREME_DATA_DIR"),
		},
		&cli.StringFlag{
			Name:    "operator",
			Sources: cli.EnvVars("DAREME_CRANK_OPERATOR"),
		},
		&cli.DurationFlag{
			Name:    "crank-interval",
			Value:   time.Minute,
			Sources: cli.EnvVars("DAREME_CRANK_INTERVAL"),
		},
	}
}

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("no .env file found, reading environment variables directly")
	}

	//nolint:exhaustruct
	cmd := &cli.Command{
		Name: "dareme",
		Commands: []*cli.Command{
			{
				Name: "server",
				Flags: append(storeFlags(),
					&cli.IntFlag{
						Name:    "port",
						Value:   3000, //nolint:mnd
						Sources: cli.EnvVars("DAREME_PORT"),
					},
					&cli.StringFlag{
						Name:    "proof-dir",
						Value:   "./dareme/proofs",
						Sources: cli.EnvVars("DAREME_PROOF_DIR"),
					},
					&cli.BoolFlag{
						Name:    "crank",
						Value:   true,
						Sources: cli.EnvVars("DAREME_CRANK"),
					},
				),
				Action: runServer,
			},
			{
				Name:   "crank",
				Usage:  "expire every overdue dare once",
				Flags:  storeFlags(),
				Action: runCrank,
			},
			{
				Name:  "fund",
				Usage: "credit a user account in the ledger",
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:     "account",
						Required: true,
					},
					&cli.IntFlag{
						Name:     "amount",
						Required: true,
					},
				),
				Action: runFund,
			},
			{
				Name:   "keygen",
				Usage:  "generate a user identity",
				Action: runKeygen,
			},
			{
				Name:  "inspect",
				Usage: "print a dare record",
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:     "challenger",
						Required: true,
					},
					&cli.IntFlag{
						Name:     "id",
						Required: true,
					},
				),
				Action: runInspect,
			},
		},
		DefaultCommand: "server",
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = cmd.Run(ctx, os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
