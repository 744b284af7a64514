package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sawpanic/sigledger/internal/ledger"
	"github.com/sawpanic/sigledger/internal/secrets"
)

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new Ed25519 keypair for ledger signing",
		Long: `Generates a fresh keypair for provisioning. Store the private seed in the
` + secrets.DefaultPrivateKeyVar + ` environment variable on the writer host and
distribute the public key out-of-band to every party running verification.`,
		RunE: runKeygen,
	}
}

func runKeygen(cmd *cobra.Command, args []string) error {
	privHex, pubHex, err := ledger.GenerateKeypair()
	if err != nil {
		return err
	}
	fmt.Printf("private key (seed, keep secret): %s\n", privHex)
	fmt.Printf("public key (distribute):         %s\n", pubHex)
	return nil
}
