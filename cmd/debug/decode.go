package debug

import (
	"encoding/hex"
	"fmt"
	"log"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/causewayprotocol/causeway/pkg/wire"
)

var DebugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Debugging utilities",
}

func init() {
	DebugCmd.AddCommand(decodeMessageCmd)
}

var decodeMessageCmd = &cobra.Command{
	Use:   "decode-message [DATA]",
	Short: "Decode hex-encoded bridge message payloads",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, arg := range args {
			arg = strings.TrimPrefix(arg, "0x")
			b, err := hex.DecodeString(arg)
			if err != nil {
				log.Fatal(err)
			}

			msg, err := wire.Parse(b)
			if err != nil {
				log.Fatal(err)
			}

			fmt.Printf("%s: %s", msg.Action(), spew.Sdump(msg))
		}
	},
}
