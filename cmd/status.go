package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted policy state and verification window",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		given, err := st.ConsentGiven(ctx)
		if err != nil {
			return err
		}
		isMinor, haveVerdict, err := st.LastVerdictMinor(ctx)
		if err != nil {
			return err
		}
		until, err := st.VerificationAllowedUntil(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("consent:  %v\n", given)
		switch {
		case !haveVerdict:
			fmt.Println("verdict:  none (no analysis completed yet)")
			fmt.Println("policy:   unset")
		case isMinor:
			fmt.Println("verdict:  minor")
			fmt.Println("policy:   enforced")
		default:
			fmt.Println("verdict:  major")
			fmt.Println("policy:   cleared")
		}
		if until.IsZero() {
			fmt.Println("window:   none")
		} else if time.Now().Before(until) {
			fmt.Printf("window:   valid until %s (%s left)\n",
				until.Local().Format(time.RFC3339), time.Until(until).Round(time.Second))
		} else {
			fmt.Printf("window:   expired at %s\n", until.Local().Format(time.RFC3339))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
