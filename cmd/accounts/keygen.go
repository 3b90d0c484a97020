package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/99minutos/accounts-service/internal/core/token"
)

// NewKeygenCmd creates the keygen subcommand.
func NewKeygenCmd() *cobra.Command {
	var bits int

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an access-token signing key pair",
		Long: `Generate a fresh RSA key pair and print it as env assignments for
ACCESS_TOKEN_PRIVATE_KEY and ACCESS_TOKEN_PUBLIC_KEY, newlines escaped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if bits < token.MinKeyBits {
				return fmt.Errorf("key size must be at least %d bits", token.MinKeyBits)
			}
			private, public, err := token.GenerateKeyPairPEM(bits)
			if err != nil {
				return err
			}
			cmd.Printf("ACCESS_TOKEN_PRIVATE_KEY=%q\n", string(private))
			cmd.Printf("ACCESS_TOKEN_PUBLIC_KEY=%q\n", string(public))
			return nil
		},
	}

	cmd.Flags().IntVar(&bits, "bits", token.MinKeyBits, "RSA key size in bits")
	return cmd
}
