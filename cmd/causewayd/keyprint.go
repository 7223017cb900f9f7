package causewayd

import (
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/openpgp/armor" //nolint
)

var KeyprintCmd = &cobra.Command{
	Use:   "keyprint [KEYFILE]",
	Short: "Unmarshal and print an armored bridge key in hex format",
	Run:   runKeyprint,
	Args:  cobra.ExactArgs(1),
}

func runKeyprint(cmd *cobra.Command, args []string) {
	keyFile := args[0]

	fmt.Println("Reading key from", keyFile)

	f, err := os.Open(keyFile)
	if err != nil {
		log.Fatalf("failed to open keyfile: %v", err)
	}

	p, err := armor.Decode(f)
	if err != nil {
		log.Fatalf("failed to read armored file: %v", err)
	}

	b, err := io.ReadAll(p.Body)
	if err != nil {
		log.Fatalf("failed to read file: %v", err)
	}

	gk, err := ethcrypto.ToECDSA(b)
	if err != nil {
		log.Fatalf("failed to deserialize raw key data: %v", err)
	}

	fmt.Printf("Bridge key:\n")
	fmt.Printf("\tType: %s\n", p.Type)
	for k, v := range p.Header {
		fmt.Printf("\t%s: %s\n", k, v)
	}
	fmt.Printf("\tAddress: %s\n", ethcrypto.PubkeyToAddress(gk.PublicKey).String())
	fmt.Printf("\tPrivatekey: %s\n", hex.EncodeToString(b))
}
