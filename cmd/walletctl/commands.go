package main

import (
	"errors"
	"fmt"

	"wallet-gateway/internal/broker"
	"wallet-gateway/internal/models"
	"wallet-gateway/internal/repositories/kafkarepo"
	"wallet-gateway/internal/repositories/sqlrepo"
	"wallet-gateway/internal/services"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the wallet tables if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(false)
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func createUserCmd() *cobra.Command {
	var req models.CreateUserRequest

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Register a wallet user",
		Example: `  walletctl create-user --phone 01012345678 --pin 1234 --balance 50000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(true)
			if err != nil {
				return err
			}
			defer e.close()

			users := sqlrepo.NewUserRepository(e.db)
			gate, err := services.NewAuthGate(users, e.cfg.Payment.BcryptCost, e.log)
			if err != nil {
				return err
			}
			accounts := services.NewAccountService(users, e.payments(), gate, e.balanceCache(), nil,
				e.cfg.Payment.BcryptCost, e.cfg.Auth.TokenTTL, e.log)

			user, err := accounts.CreateUser(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), models.NewUserResponse(user))
		},
	}

	cmd.Flags().StringVar(&req.Phone, "phone", "", "phone number (01XXXXXXXXX)")
	cmd.Flags().StringVar(&req.Pin, "pin", "", "4 to 6 digit PIN")
	cmd.Flags().StringVar(&req.Name, "name", "", "display name")
	cmd.Flags().Int64Var(&req.InitialBalance, "balance", 0, "initial balance in minor units")
	cmd.MarkFlagRequired("phone")
	cmd.MarkFlagRequired("pin")

	return cmd
}

func topupCmd() *cobra.Command {
	var (
		phone  string
		amount int64
		async  bool
	)

	cmd := &cobra.Command{
		Use:   "topup",
		Short: "Credit a wallet, directly or through the topup worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			if amount <= 0 {
				return services.ErrInvalidAmount
			}

			if async {
				return queueTopup(cmd, phone, amount)
			}

			e, err := openEnv(true)
			if err != nil {
				return err
			}
			defer e.close()

			res, err := e.payments().Topup(cmd.Context(), phone, amount)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVar(&phone, "phone", "", "phone number of the wallet")
	cmd.Flags().Int64Var(&amount, "amount", 0, "amount in minor units")
	cmd.Flags().BoolVar(&async, "async", false, "queue the topup on Kafka instead of applying it")
	cmd.MarkFlagRequired("phone")
	cmd.MarkFlagRequired("amount")

	return cmd
}

func queueTopup(cmd *cobra.Command, phone string, amount int64) error {
	e, err := openEnv(false)
	if err != nil {
		return err
	}
	defer e.close()

	if !e.cfg.Kafka.Enabled() {
		return errors.New("KAFKA_BROKERS is required for --async")
	}

	writer := broker.NewTopupWriter(e.cfg.Kafka)
	defer writer.Close()

	command := models.TopupCommand{
		RequestID: uuid.NewString(),
		Phone:     phone,
		Amount:    amount,
	}
	if err := kafkarepo.NewTopupRepository(writer).SendTopup(cmd.Context(), command); err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), command)
}

func expireSessionsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "expire-sessions",
		Short: "Mark pending pay sessions past their deadline as expired",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(false)
			if err != nil {
				return err
			}
			defer e.close()

			manager := services.NewSessionManager(sqlrepo.NewSessionRepository(e.db), e.cfg.Payment, e.log)
			n, err := manager.ExpireStale(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d sessions\n", n)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 500, "maximum sessions to expire")
	return cmd
}

func retryCallbacksCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "retry-callbacks",
		Short: "Re-send outcome callbacks that were never acknowledged",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(false)
			if err != nil {
				return err
			}
			defer e.close()

			if e.cfg.Callback.Secret == "" {
				return errors.New("WEBHOOK_SECRET is required")
			}

			dispatcher := services.NewDispatcher(sqlrepo.NewSessionRepository(e.db), nil,
				e.cfg.Callback, services.NewRetryPolicy(e.cfg.Callback), e.log)
			n, err := dispatcher.RetryUndelivered(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "delivered %d callbacks\n", n)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum sessions to retry")
	return cmd
}
