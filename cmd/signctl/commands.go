package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitpay/internal/approval"
	"github.com/mmynk/splitpay/internal/auth"
	"github.com/mmynk/splitpay/pkg/signer"
)

// approvalFlags are the fields bound into every approval digest. Token and
// payer must be copied from the stored split (GET /v1/splits/{id}), not from
// whoever is asking for the signature.
type approvalFlags struct {
	networkID  string
	instanceID string
	splitID    uint64
	payer      string
	token      string
	amount     uint64
	deadline   int64
	salt       string
}

func (f *approvalFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.networkID, "network", "simnet", "coordinator network id")
	cmd.Flags().StringVar(&f.instanceID, "instance", "dev", "coordinator instance id")
	cmd.Flags().Uint64Var(&f.splitID, "split-id", 0, "split identifier")
	cmd.Flags().StringVar(&f.payer, "payer", "", "payer identity (hex compressed pubkey)")
	cmd.Flags().StringVar(&f.token, "token", "", "token identifier")
	cmd.Flags().Uint64Var(&f.amount, "amount", 0, "owed amount in smallest units")
	cmd.Flags().Int64Var(&f.deadline, "deadline", 0, "approval deadline as unix seconds (0 = none)")
	cmd.Flags().StringVar(&f.salt, "salt", "", "32-byte hex salt (generated when omitted)")
	cmd.MarkFlagRequired("split-id")
	cmd.MarkFlagRequired("payer")
	cmd.MarkFlagRequired("token")
	cmd.MarkFlagRequired("amount")
}

func (f *approvalFlags) request() (signer.Request, error) {
	req := signer.Request{
		SplitID:  f.splitID,
		Payer:    f.payer,
		Token:    f.token,
		Amount:   f.amount,
		Deadline: f.deadline,
	}
	if f.salt == "" {
		salt, err := signer.NewSalt()
		if err != nil {
			return req, err
		}
		req.Salt = salt
		return req, nil
	}
	b, err := hex.DecodeString(f.salt)
	if err != nil || len(b) != approval.SaltSize {
		return req, fmt.Errorf("salt must be %d bytes of hex", approval.SaltSize)
	}
	copy(req.Salt[:], b)
	return req, nil
}

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a participant key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := signer.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Printf("private:  %x\n", key.Serialize())
			fmt.Printf("identity: %s\n", approval.IdentityString(key.PubKey()))
			return nil
		},
	}
}

func newDigestCmd() *cobra.Command {
	var flags approvalFlags
	var participant string
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Compute the approval digest for an obligation",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request()
			if err != nil {
				return err
			}
			pubP, err := approval.ParseIdentity(participant)
			if err != nil {
				return err
			}
			pubPayer, err := approval.ParseIdentity(req.Payer)
			if err != nil {
				return err
			}
			domain := approval.NewDomain(flags.networkID, flags.instanceID)
			digest := domain.Digest(req.SplitID, pubP, pubPayer, req.Token, req.Amount, req.Deadline, req.Salt)
			fmt.Printf("salt:   %x\n", req.Salt)
			fmt.Printf("digest: %x\n", digest)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&participant, "participant", "", "participant identity (hex compressed pubkey)")
	cmd.MarkFlagRequired("participant")
	return cmd
}

func newSignCmd() *cobra.Command {
	var flags approvalFlags
	var keyHex string
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign an approval for your share of a split",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := signer.ParseKey(keyHex)
			if err != nil {
				return err
			}
			req, err := flags.request()
			if err != nil {
				return err
			}
			domain := approval.NewDomain(flags.networkID, flags.instanceID)
			sig, err := signer.Sign(domain, key, req)
			if err != nil {
				return err
			}
			fmt.Printf("participant: %s\n", approval.IdentityString(key.PubKey()))
			fmt.Printf("salt:        %x\n", req.Salt)
			fmt.Printf("signature:   %x\n", sig)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&keyHex, "key", "", "hex-encoded 32-byte private key")
	cmd.MarkFlagRequired("key")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	var flags approvalFlags
	var participant, sigHex string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify an approval signature against its fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.salt == "" {
				return fmt.Errorf("--salt is required for verify")
			}
			req, err := flags.request()
			if err != nil {
				return err
			}
			pubP, err := approval.ParseIdentity(participant)
			if err != nil {
				return err
			}
			pubPayer, err := approval.ParseIdentity(req.Payer)
			if err != nil {
				return err
			}
			b, err := hex.DecodeString(sigHex)
			if err != nil || len(b) != approval.SignatureSize {
				return fmt.Errorf("signature must be %d bytes of hex", approval.SignatureSize)
			}
			var sig [approval.SignatureSize]byte
			copy(sig[:], b)

			domain := approval.NewDomain(flags.networkID, flags.instanceID)
			digest := domain.Digest(req.SplitID, pubP, pubPayer, req.Token, req.Amount, req.Deadline, req.Salt)
			if !approval.Verify(digest, sig, pubP) {
				return fmt.Errorf("signature does not verify")
			}
			fmt.Println("ok")
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&participant, "participant", "", "participant identity (hex compressed pubkey)")
	cmd.Flags().StringVar(&sigHex, "signature", "", "65-byte hex compact signature")
	cmd.MarkFlagRequired("participant")
	cmd.MarkFlagRequired("signature")
	return cmd
}

func newHashSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-secret <secret>",
		Short: "Produce the bcrypt hash for CLIENT_SECRET_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashSecret(args[0])
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		},
	}
}
