package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"entitlement-api/internal/codec"
	"entitlement-api/internal/entitlement"
	"entitlement-api/internal/models"
	"entitlement-api/internal/provider"

	"github.com/spf13/cobra"
)

func newCheckoutCmd(opts *options) *cobra.Command {
	var email, plan, paymentID, expires string
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Buy a subscription and keep it on this device",
		Example: `  entitlementctl checkout --server http://localhost:8080 --email ana@example.com --plan monthly
  entitlementctl checkout --platform offline --plan free --expires 2027-01-01T00:00:00Z`,
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			p, err := models.ParsePlan(plan)
			if err != nil {
				return err
			}
			req := provider.CreateRequest{Email: email, Plan: p, PaymentID: paymentID}
			if expires != "" {
				t, err := codec.ParseISO(expires)
				if err != nil {
					return fmt.Errorf("invalid --expires: %w", err)
				}
				req.ExpiresAt = t
			}

			res, err := s.provider.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := printResult(cmd.OutOrStdout(), res, false); err != nil {
				return err
			}
			if rec, err := s.service.Record(cmd.Context()); err == nil && rec.MobileAccessCode != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "mobile_access_code: %s\n", rec.MobileAccessCode)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "subscriber email (web)")
	cmd.Flags().StringVar(&plan, "plan", string(models.PlanMonthly), "plan to buy")
	cmd.Flags().StringVar(&paymentID, "payment-id", "", "payment reference from the checkout provider")
	cmd.Flags().StringVar(&expires, "expires", "", "explicit expiry (ISO-8601), overrides the plan term")
	return cmd
}

func newActivateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "activate CODE",
		Short: "Activate a mobile access code",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			res, err := s.provider.Create(cmd.Context(), provider.CreateRequest{Code: args[0]})
			if err != nil {
				return err
			}
			if err := printResult(cmd.OutOrStdout(), res, false); err != nil {
				return err
			}
			if !res.Valid {
				return fmt.Errorf("activation failed: %s", res.Reason)
			}
			return nil
		}),
	}
}

func newStatusCmd(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the subscription held on this device",
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			res := s.provider.Verify(cmd.Context())
			if err := printResult(cmd.OutOrStdout(), res, asJSON); err != nil {
				return err
			}
			if !asJSON && s.service.IsAboutToExpire(cmd.Context()) {
				fmt.Fprintf(cmd.OutOrStdout(), "warning: subscription expires in %d day(s)\n", res.DaysRemaining)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func newVerifyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "verify TOKEN",
		Short: "Check a token against the local record",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			res := s.service.Verify(cmd.Context(), args[0])
			if err := printResult(cmd.OutOrStdout(), res, false); err != nil {
				return err
			}
			if !res.Valid {
				return fmt.Errorf("token rejected: %s", res.Reason)
			}
			return nil
		}),
	}
}

func newRefreshCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Reconcile the local record with the server",
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			res, err := s.provider.Refresh(cmd.Context())
			if perr := printResult(cmd.OutOrStdout(), res, false); perr != nil {
				return perr
			}
			return err
		}),
	}
}

func newCancelCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the subscription and remove it from this device",
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			if err := s.provider.Cancel(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "subscription cancelled")
			return nil
		}),
	}
}

func newClearCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the local record without contacting the server",
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			if err := s.service.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "local record cleared")
			return nil
		}),
	}
}

func newInspectCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print the raw local record",
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			rec, err := s.store.Load(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "token: %s\n", rec.Token)
			fmt.Fprintf(w, "plan: %s\n", rec.Plan)
			fmt.Fprintf(w, "expires_at: %s\n", codec.FormatISO(rec.ExpiresAt))
			fmt.Fprintf(w, "created_at: %s\n", codec.FormatISO(rec.CreatedAt))
			fmt.Fprintf(w, "mobile_access_code: %s\n", rec.MobileAccessCode)
			fmt.Fprintf(w, "validation: %s\n", rec.ValidationMarker)
			return nil
		}),
	}
}

type resultView struct {
	State         entitlement.State  `json:"state"`
	Reason        entitlement.Reason `json:"reason,omitempty"`
	Plan          models.Plan        `json:"plan,omitempty"`
	ExpiresAt     string             `json:"expires_at,omitempty"`
	DaysRemaining int                `json:"days_remaining"`
}

func printResult(w io.Writer, res entitlement.Result, asJSON bool) error {
	v := resultView{State: res.State(), Reason: res.Reason}
	if res.Valid {
		v.Plan = res.Plan
		v.ExpiresAt = res.ExpiresAt.UTC().Format(time.RFC3339)
		v.DaysRemaining = res.DaysRemaining
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	fmt.Fprintf(w, "state: %s\n", v.State)
	if v.Reason != "" {
		fmt.Fprintf(w, "reason: %s\n", v.Reason)
	}
	if res.Valid {
		fmt.Fprintf(w, "plan: %s\n", v.Plan)
		fmt.Fprintf(w, "expires_at: %s\n", v.ExpiresAt)
		fmt.Fprintf(w, "days_remaining: %d\n", v.DaysRemaining)
	}
	return nil
}
