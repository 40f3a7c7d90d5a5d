package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	committeemodels "safeharbour/internal/committee/models"
	committeeservice "safeharbour/internal/committee/service"
	identityservice "safeharbour/internal/identity/service"
	"safeharbour/internal/platform/secrets"
	id "safeharbour/pkg/domain"
	strutil "safeharbour/pkg/platform/strings"
	"safeharbour/pkg/requestcontext"
)

const tokenTTL = 12 * time.Hour

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withApp wires the services for a one-shot command. Without a database the
// stores live only for the duration of the command.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg := configFrom(cmd.Context())
	logger := newLogger(cfg)
	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := requestcontext.WithTime(cmd.Context(), time.Now().UTC())
	return fn(ctx, a)
}

func uinCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uin",
		Short: "Encode or decode UINs with the configured codec key",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "encode <sequential-id>",
		Short: "Print the UIN for a sequential id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid sequential id %q: %w", args[0], err)
			}
			c, err := newCodec(configFrom(cmd.Context()))
			if err != nil {
				return err
			}
			uin, err := c.EncodeInt(seq)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), uin)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "decode <uin>",
		Short: "Print the sequential id behind a UIN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newCodec(configFrom(cmd.Context()))
			if err != nil {
				return err
			}
			seq, err := c.Decode(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), seq)
			return nil
		},
	})
	return cmd
}

func keygenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Print a random hex encoded 32-byte key",
		// keygen is used to produce the config, so it must not require one.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := secrets.Generate()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
}

func identityCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identities",
		Short: "Manage pseudonymous identities",
	}
	var org, role, email, secretRef string
	register := &cobra.Command{
		Use:   "register",
		Short: "Register an identity and print its UIN",
		RunE: func(cmd *cobra.Command, _ []string) error {
			orgID, err := id.ParseOrgID(org)
			if err != nil {
				return err
			}
			r, err := id.ParseRole(role)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				ident, err := a.identity.Register(ctx, identityservice.RegisterRequest{
					OrgID:     orgID,
					Role:      r,
					Email:     email,
					SecretRef: secretRef,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd, ident)
			})
		},
	}
	register.Flags().StringVar(&org, "org", "", "organisation id")
	register.Flags().StringVar(&role, "role", string(id.RoleReporter), "identity role")
	register.Flags().StringVar(&email, "email", "", "contact email, stored only as a blind index")
	register.Flags().StringVar(&secretRef, "secret-ref", "", "vault reference returned on reveal")
	_ = register.MarkFlagRequired("org")
	_ = register.MarkFlagRequired("email")
	_ = register.MarkFlagRequired("secret-ref")
	cmd.AddCommand(register)
	return cmd
}

func committeeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "committee",
		Short: "Manage committee seats",
	}
	var org, uin, role, designations string
	seat := &cobra.Command{
		Use:   "seat",
		Short: "Seat a committee member without an acting member",
		Long: `Seat a committee member. This bypasses the acting-member check and is
meant for bootstrapping an organisation's first seats.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			orgID, err := id.ParseOrgID(org)
			if err != nil {
				return err
			}
			r, err := id.ParseRole(role)
			if err != nil {
				return err
			}
			var ds []committeemodels.Designation
			for _, d := range strutil.Split(designations) {
				ds = append(ds, committeemodels.Designation(d))
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				m, err := a.committee.AddMember(ctx, "", committeeservice.AddMemberRequest{
					OrgID:        orgID,
					UIN:          uin,
					Role:         r,
					Designations: ds,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd, m)
			})
		},
	}
	seat.Flags().StringVar(&org, "org", "", "organisation id")
	seat.Flags().StringVar(&uin, "uin", "", "member UIN")
	seat.Flags().StringVar(&role, "role", string(id.RoleMember), "committee role")
	seat.Flags().StringVar(&designations, "designations", "", "comma separated alert designations (chair, escalation)")
	_ = seat.MarkFlagRequired("org")
	_ = seat.MarkFlagRequired("uin")
	cmd.AddCommand(seat)
	return cmd
}

func alertsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Inspect and repair the alert queue",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "requeue <case-id>",
		Short: "Re-enqueue a case's scheduled alerts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caseID, err := id.ParseCaseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.scheduler.Requeue(ctx, caseID)
				if err != nil {
					return err
				}
				if !res.Complete() {
					_ = printJSON(cmd, res.Failures)
					return fmt.Errorf("%d alerts could not be enqueued", len(res.Failures))
				}
				return printJSON(cmd, res.Alerts)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "failed",
		Short: "List jobs that exhausted their retries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				failed, err := a.queue.Failed(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, failed)
			})
		},
	})
	return cmd
}

func tokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue bearer tokens for registered identities",
	}
	var ttl time.Duration
	issue := &cobra.Command{
		Use:   "issue <uin>",
		Short: "Print a signed bearer token for a UIN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				ident, err := a.identity.Resolve(ctx, args[0])
				if err != nil {
					return err
				}
				token, err := a.tokens.GenerateActorToken(ident.UIN, ident.OrgID.String(), requestcontext.Now(ctx), ttl)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			})
		},
	}
	issue.Flags().DurationVar(&ttl, "ttl", tokenTTL, "token lifetime")
	cmd.AddCommand(issue)
	return cmd
}
