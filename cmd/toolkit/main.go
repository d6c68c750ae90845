package main

import (
	"github.com/spf13/cobra"
)

var cliName = "toolkit"

var rootCmd = &cobra.Command{
	Use:   cliName,
	Short: "toolkit is a CLI for rewarder operators",
	Long:  `toolkit is a CLI for rewarder operators executing mundane tasks`,
	Args:  cobra.ExactArgs(0),
}

func main() {
	rootCmd.Execute() //nolint
}

func init() {
	rootCmd.AddCommand(walletCmd)
	rootCmd.AddCommand(payoutCmd)

	walletCreateCmd.Flags().String("filename", "privatekey.hex", "Filename to store hex representation of private key")
	walletCmd.AddCommand(walletCreateCmd)
	walletCmd.AddCommand(walletAddressCmd)

	payoutCmd.Flags().String("privatekey", "", "the private key used to sign the payout")
	payoutCmd.Flags().String("gateway", "", "URL of an Ethereum node API (i.e: Alchemy/Infura)")
	payoutCmd.Flags().String("amount-wei", "10000000000000000", "transfer value in wei")
	payoutCmd.Flags().Int64("chain-id", 1337, "chain id")
}
