package cmd

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/brogergvhs/mangakit/internal/codec"

	"github.com/spf13/cobra"
)

var (
	flagPassword string
	flagBase64   bool
	flagCryptoJS bool
	flagTableA   string
	flagTableB   string
)

func readInput(cmd *cobra.Command) ([]byte, error) {
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return b, nil
}

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode an obfuscated page payload read from stdin",
}

var decodeAESCmd = &cobra.Command{
	Use:   "aes",
	Short: "Decrypt an OpenSSL \"Salted__\" payload or a CryptoJS envelope",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := readInput(cmd)
		if err != nil {
			return err
		}
		text := strings.TrimSpace(string(in))

		var plain string
		switch {
		case flagCryptoJS:
			plain, err = codec.DecodeCryptoJSON(text, flagPassword)
		case flagBase64:
			plain, err = codec.DecodeAESBase64(text, flagPassword)
		default:
			plain, err = codec.DecodeAESPayload(in, flagPassword)
		}
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), plain)
		return nil
	},
}

var decodeUnscrambleCmd = &cobra.Command{
	Use:   "unscramble",
	Short: "Reverse a two-table substitution and print the decoded JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := readInput(cmd)
		if err != nil {
			return err
		}

		raw, err := codec.UnscrambleJSON(strings.TrimSpace(string(in)), flagTableA, flagTableB)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(raw))
		return nil
	},
}

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Produce test payloads",
}

var encodeAESCmd = &cobra.Command{
	Use:   "aes",
	Short: "Encrypt stdin as a base64 OpenSSL payload, or a CryptoJS envelope",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := readInput(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if flagCryptoJS {
			env, err := codec.SealCryptoJSON(in, flagPassword)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, env)
			return nil
		}

		blob, err := codec.SealAESPayload(in, flagPassword, nil)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, base64.StdEncoding.EncodeToString(blob))
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{decodeAESCmd, encodeAESCmd} {
		c.Flags().StringVar(&flagPassword, "password", "", "passphrase")
		c.Flags().BoolVar(&flagCryptoJS, "cryptojs", false, "CryptoJS JSON envelope ({\"ct\",\"iv\",\"s\"})")
		_ = c.MarkFlagRequired("password")
	}
	decodeAESCmd.Flags().BoolVar(&flagBase64, "base64", false, "input is base64 text")

	decodeUnscrambleCmd.Flags().StringVar(&flagTableA, "a", "", "first 62-character table")
	decodeUnscrambleCmd.Flags().StringVar(&flagTableB, "b", "", "second 62-character table")
	_ = decodeUnscrambleCmd.MarkFlagRequired("a")
	_ = decodeUnscrambleCmd.MarkFlagRequired("b")

	decodeCmd.AddCommand(decodeAESCmd, decodeUnscrambleCmd)
	encodeCmd.AddCommand(encodeAESCmd)
	rootCmd.AddCommand(decodeCmd, encodeCmd)
}
