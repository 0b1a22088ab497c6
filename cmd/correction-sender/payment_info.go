package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/correction-sender/pkg/client"
	"github.com/Sternrassler/correction-sender/pkg/ingest"
)

func newPaymentInfoCmd(opts *rootOptions) *cobra.Command {
	var publicID string

	cmd := &cobra.Command{
		Use:   "payment-info <transactionId>",
		Short: "Look up a prior transaction and print the API answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transactionID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid transaction id %q: %w", args[0], err)
			}

			a, err := newApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			credentials, err := ingest.ReadCredentials(a.cfg.KeysFile)
			if err != nil {
				return fmt.Errorf("read keys: %w", err)
			}
			cred, ok := credentials.Lookup(publicID)
			if !ok {
				return fmt.Errorf("%w for publicId=%s", client.ErrMissingCredential, publicID)
			}

			info, err := a.client.GetPaymentInfo(cmd.Context(), transactionID, cred)
			if err != nil {
				return fmt.Errorf("payment info %d: %w", transactionID, err)
			}

			var pretty bytes.Buffer
			if err := json.Indent(&pretty, info.Raw, "", "  "); err != nil {
				return fmt.Errorf("format response: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&publicID, "public-id", "", "merchant public id whose key authenticates the lookup")
	_ = cmd.MarkFlagRequired("public-id")
	return cmd
}
