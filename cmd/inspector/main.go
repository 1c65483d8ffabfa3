// Command inspector is a developer tool for the report wire format: generate
// signer keys, craft signed report blobs for test feeds, and decode blobs
// fetched from a live one.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/GoStableSwap/riskgate/internal/model"
	"github.com/GoStableSwap/riskgate/internal/oracle"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "keygen":
		err = keygen()
	case "craft":
		err = craft(os.Args[2:])
	case "decode":
		err = decode(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: inspector <command>

commands:
  keygen                       generate a signer key and print key + address
  craft  -source -value -keys  build and sign a report blob
  decode -report               decode a blob and recover its signers`)
}

func keygen() error {
	key, err := crypto.GenerateKey()
	if err != nil {
		return err
	}
	fmt.Println("private key:", hexutil.Encode(crypto.FromECDSA(key))[2:])
	fmt.Println("address:    ", crypto.PubkeyToAddress(key.PublicKey).Hex())
	return nil
}

func craft(args []string) error {
	fs := flag.NewFlagSet("craft", flag.ExitOnError)
	source := fs.String("source", "", "source id (0x-prefixed bytes32)")
	value := fs.String("value", "", "rating value as a decimal, e.g. 2.9")
	keys := fs.String("keys", "", "comma-separated signer private keys (hex)")
	validFor := fs.Duration("valid-for", time.Hour, "expiry relative to now")
	status := fs.Uint64("status", 0, "status flag (0 = OK)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *source == "" || *value == "" || *keys == "" {
		return fmt.Errorf("-source, -value and -keys are required")
	}

	sourceID := common.HexToHash(*source)
	rating, err := decimal.NewFromString(*value)
	if err != nil {
		return fmt.Errorf("invalid value: %w", err)
	}
	raw := rating.Mul(decimal.New(1, 18)).BigInt()

	now := time.Now().UTC()
	payload := oracle.EncodePayload(&model.AuthenticatedPayload{
		SourceID:   sourceID,
		ValidFrom:  now,
		ObservedAt: now,
		Expiry:     now.Add(*validFor),
		Raw:        raw,
		Status:     *status,
	})

	blob := payload
	digest := oracle.Digest(payload)
	for _, keyHex := range strings.Split(*keys, ",") {
		key, err := crypto.HexToECDSA(strings.TrimSpace(strings.TrimPrefix(keyHex, "0x")))
		if err != nil {
			return fmt.Errorf("invalid signer key: %w", err)
		}
		sig, err := crypto.Sign(digest, key)
		if err != nil {
			return err
		}
		blob = append(blob, sig...)
	}

	fmt.Println(hexutil.Encode(blob))
	return nil
}

func decode(args []string) error {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	report := fs.String("report", "", "report blob (0x-prefixed hex)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *report == "" {
		return fmt.Errorf("-report is required")
	}

	raw, err := hexutil.Decode(*report)
	if err != nil {
		return err
	}
	if len(raw) < oracle.PayloadSize {
		return fmt.Errorf("blob is %d bytes, payload alone needs %d", len(raw), oracle.PayloadSize)
	}

	payload := raw[:oracle.PayloadSize]
	p, err := oracle.DecodePayload(payload)
	if err != nil {
		return err
	}

	fmt.Println("source:     ", p.SourceID.Hex())
	fmt.Println("valid from: ", p.ValidFrom.Format(time.RFC3339))
	fmt.Println("observed at:", p.ObservedAt.Format(time.RFC3339))
	fmt.Println("expiry:     ", p.Expiry.Format(time.RFC3339))
	fmt.Println("raw value:  ", p.Raw.String())
	fmt.Println("status:     ", p.Status)

	rest := raw[oracle.PayloadSize:]
	if len(rest)%oracle.SignatureSize != 0 {
		return fmt.Errorf("trailing %d bytes are not whole signatures", len(rest)%oracle.SignatureSize)
	}
	digest := oracle.Digest(payload)
	for i := 0; i < len(rest); i += oracle.SignatureSize {
		sig := make([]byte, oracle.SignatureSize)
		copy(sig, rest[i:i+oracle.SignatureSize])
		if sig[64] >= 27 {
			sig[64] -= 27
		}
		pub, err := crypto.SigToPub(digest, sig)
		if err != nil {
			fmt.Printf("signature %d: recovery failed: %v\n", i/oracle.SignatureSize, err)
			continue
		}
		fmt.Printf("signature %d: %s\n", i/oracle.SignatureSize, crypto.PubkeyToAddress(*pub).Hex())
	}

	return nil
}
