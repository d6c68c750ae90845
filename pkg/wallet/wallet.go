package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Wallet is the custodial signing identity of the relay. Every payout
// transaction is signed with this single key.
type Wallet struct {
	sk *ecdsa.PrivateKey
	pk *ecdsa.PublicKey
}

// NewWallet creates a wallet from a hex-encoded private key.
func NewWallet(sk string) (*Wallet, error) {
	privateKey, err := crypto.HexToECDSA(sk)
	if err != nil {
		return nil, fmt.Errorf("converting private key to ECDSA: %s", err)
	}

	publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("casting public key to ECDSA")
	}

	return &Wallet{
		sk: privateKey,
		pk: publicKeyECDSA,
	}, nil
}

// PrivateKey gets the private key.
func (w *Wallet) PrivateKey() *ecdsa.PrivateKey {
	return w.sk
}

// Address returns the wallet address.
func (w *Wallet) Address() common.Address {
	return crypto.PubkeyToAddress(*w.pk)
}

func (w *Wallet) String() string {
	return w.Address().Hex()
}
