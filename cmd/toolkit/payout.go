package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"

	feesimpl "github.com/rewardlabs/go-rewarder/pkg/fees/impl"
	relayimpl "github.com/rewardlabs/go-rewarder/pkg/relay/impl"
	"github.com/rewardlabs/go-rewarder/pkg/wallet"
)

var payoutCmd = &cobra.Command{
	Use:   "payout",
	Short: "Sends a one-off payout transfer",
	Long:  `Sends a one-off payout transfer to the provided address`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		privateKey, err := cmd.Flags().GetString("privatekey")
		if err != nil {
			return errors.New("failed to parse privatekey")
		}
		gatewayEndpoint, err := cmd.Flags().GetString("gateway")
		if err != nil {
			return errors.New("failed to parse gateway")
		}
		amountWei, err := cmd.Flags().GetString("amount-wei")
		if err != nil {
			return errors.New("failed to parse amount-wei")
		}
		chainID, err := cmd.Flags().GetInt64("chain-id")
		if err != nil {
			return errors.New("failed to parse chain-id")
		}

		if !common.IsHexAddress(args[0]) {
			return fmt.Errorf("%s isn't a valid address", args[0])
		}
		to := common.HexToAddress(args[0])

		amount, ok := new(big.Int).SetString(amountWei, 10)
		if !ok || amount.Sign() <= 0 {
			return fmt.Errorf("%s isn't a valid wei amount", amountWei)
		}

		w, err := wallet.NewWallet(privateKey)
		if err != nil {
			return fmt.Errorf("decode key: %s", err)
		}

		conn, err := ethclient.Dial(gatewayEndpoint)
		if err != nil {
			return fmt.Errorf("failed to connect to ethereum endpoint: %s", err)
		}
		defer conn.Close()

		ctx := context.Background()
		sequence, err := conn.PendingNonceAt(ctx, w.Address())
		if err != nil {
			return fmt.Errorf("get pending nonce: %s", err)
		}

		quote, err := feesimpl.NewEthEstimator(conn).Current(ctx)
		if err != nil {
			return fmt.Errorf("get fee quote: %s", err)
		}

		builder := relayimpl.NewPayoutBuilder(w, big.NewInt(chainID), amount, 21000)
		txn, err := builder.Build(sequence, quote, to)
		if err != nil {
			return fmt.Errorf("building txn: %s", err)
		}
		if err := conn.SendTransaction(ctx, txn); err != nil {
			return fmt.Errorf("sending txn: %s", err)
		}

		fmt.Printf("The transaction hash is: %s\n", txn.Hash())

		return nil
	},
}
