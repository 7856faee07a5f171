package main

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/Overland-East-Bay/cashcard-api/internal/platform/auth/devtoken"
)

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Print a new RSA private key (PEM) for signing dev tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := devtoken.GenerateKey("")
			if err != nil {
				return err
			}
			return pem.Encode(cmd.OutOrStdout(), &pem.Block{
				Type:  "RSA PRIVATE KEY",
				Bytes: x509.MarshalPKCS1PrivateKey(k.Private),
			})
		},
	}
}

func jwksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jwks",
		Short: "Print the JWKS document for a signing key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := loadKey(cmd)
			if err != nil {
				return err
			}
			b, err := devtoken.MarshalJWKS(k)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
	keyFlags(cmd)
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an RS256 bearer token for AUTH_MODE=jwt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := loadKey(cmd)
			if err != nil {
				return err
			}
			iss, _ := cmd.Flags().GetString("iss")
			aud, _ := cmd.Flags().GetString("aud")
			sub, _ := cmd.Flags().GetString("sub")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			if sub == "" {
				return errors.New("--sub is required")
			}
			if ttl <= 0 {
				return errors.New("--ttl must be > 0")
			}

			tok, err := devtoken.Mint(k, devtoken.Claims{
				Issuer:   iss,
				Audience: []string{aud},
				Subject:  sub,
				IssuedAt: time.Now().UTC(),
				TTL:      ttl,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	keyFlags(cmd)
	cmd.Flags().String("iss", "http://devjwt:5556", "issuer (must match JWT_ISSUER)")
	cmd.Flags().String("aud", "cashcards", "audience (must match JWT_AUDIENCE)")
	cmd.Flags().String("sub", "", "subject; must name a registered principal")
	cmd.Flags().Duration("ttl", 30*time.Minute, "token lifetime")
	return cmd
}

func keyFlags(cmd *cobra.Command) {
	cmd.Flags().String("key", "", "PEM file holding the RSA private key")
	cmd.Flags().String("kid", "dev-kid-1", "key id")
	_ = cmd.MarkFlagRequired("key")
}

func loadKey(cmd *cobra.Command) (devtoken.Key, error) {
	path, _ := cmd.Flags().GetString("key")
	kid, _ := cmd.Flags().GetString("kid")
	b, err := os.ReadFile(path)
	if err != nil {
		return devtoken.Key{}, err
	}
	priv, err := jwt.ParseRSAPrivateKeyFromPEM(b)
	if err != nil {
		return devtoken.Key{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return devtoken.Key{Kid: kid, Private: priv}, nil
}
