package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var consentCmd = &cobra.Command{
	Use:   "consent",
	Short: "Manage the one-time consent gate",
}

var consentGrantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Record consent; analysis refuses to run without it",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := st.SetConsentGiven(cmd.Context(), true); err != nil {
			return err
		}
		fmt.Println("consent recorded")
		return nil
	},
}

var consentRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Withdraw consent",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := st.SetConsentGiven(cmd.Context(), false); err != nil {
			return err
		}
		fmt.Println("consent revoked")
		return nil
	},
}

var consentStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether consent has been given",
	RunE: func(cmd *cobra.Command, args []string) error {
		given, err := st.ConsentGiven(cmd.Context())
		if err != nil {
			return err
		}
		if given {
			fmt.Println("consent: given")
		} else {
			fmt.Println("consent: missing")
		}
		return nil
	},
}

func init() {
	consentCmd.AddCommand(consentGrantCmd, consentRevokeCmd, consentStatusCmd)
	rootCmd.AddCommand(consentCmd)
}
