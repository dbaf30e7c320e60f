package clob

import (
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/laddermaker/ladderbot/internal/config"
)

// Credentials holds the API key triplet a venue issues after L1
// authentication. These sign every subsequent trading request (L2 auth).
type Credentials struct {
	APIKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// Auth handles the two layers of authentication the venue expects:
//
//   - L1 (EIP-712): used once, to derive L2 API credentials. Signs a
//     typed-data "ClobAuth" message with the wallet's private key,
//     proving ownership of the account without ever sending the key.
//
//   - L2 (HMAC-SHA256): used for every trading request. Signs
//     "timestamp + method + path [+ body]" with the derived API secret.
//
// funderAddress may differ from address when orders are funded by a
// proxy or multisig wallet rather than the signing EOA directly.
type Auth struct {
	privateKey    *ecdsa.PrivateKey
	address       common.Address
	funderAddress common.Address
	chainID       *big.Int
	sigType       int
	creds         Credentials
}

// NewAuth builds an Auth from wallet and exchange configuration.
func NewAuth(cfg config.Config) (*Auth, error) {
	keyHex := strings.TrimPrefix(cfg.Wallet.PrivateKey, "0x")

	privateKey, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	address := crypto.PubkeyToAddress(privateKey.PublicKey)

	funder := address
	if cfg.Wallet.FunderAddress != "" {
		funder = common.HexToAddress(cfg.Wallet.FunderAddress)
	}

	return &Auth{
		privateKey:    privateKey,
		address:       address,
		funderAddress: funder,
		chainID:       big.NewInt(int64(cfg.Wallet.ChainID)),
		sigType:       cfg.Wallet.SignatureType,
		creds: Credentials{
			APIKey:     cfg.Exchange.APIKey,
			Secret:     cfg.Exchange.APISecret,
			Passphrase: cfg.Exchange.APIPassphrase,
		},
	}, nil
}

// Address returns the signer's address.
func (a *Auth) Address() common.Address { return a.address }

// FunderAddress returns the address that funds orders.
func (a *Auth) FunderAddress() common.Address { return a.funderAddress }

// HasCredentials reports whether API credentials are already configured.
func (a *Auth) HasCredentials() bool {
	return a.creds.APIKey != "" && a.creds.Secret != "" && a.creds.Passphrase != ""
}

// SetCredentials installs credentials derived via L1 authentication.
func (a *Auth) SetCredentials(creds Credentials) {
	a.creds = creds
}

// L1Headers generates headers for the key-derivation endpoint.
func (a *Auth) L1Headers(nonce int) (map[string]string, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	sig, err := a.signClobAuth(timestamp, nonce)
	if err != nil {
		return nil, fmt.Errorf("sign clob auth: %w", err)
	}

	return map[string]string{
		"L-ADDRESS":   a.address.Hex(),
		"L-SIGNATURE": sig,
		"L-TIMESTAMP": timestamp,
		"L-NONCE":     strconv.Itoa(nonce),
	}, nil
}

// L2Headers generates headers for authenticated trading requests.
func (a *Auth) L2Headers(method, path, body string) (map[string]string, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	sig, err := a.buildHMAC(timestamp, method, path, body)
	if err != nil {
		return nil, fmt.Errorf("build hmac: %w", err)
	}

	return map[string]string{
		"L-ADDRESS":    a.address.Hex(),
		"L-SIGNATURE":  sig,
		"L-TIMESTAMP":  timestamp,
		"L-API-KEY":    a.creds.APIKey,
		"L-PASSPHRASE": a.creds.Passphrase,
	}, nil
}

func (a *Auth) signClobAuth(timestamp string, nonce int) (string, error) {
	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
			},
			"ClobAuth": {
				{Name: "address", Type: "address"},
				{Name: "timestamp", Type: "string"},
				{Name: "nonce", Type: "uint256"},
				{Name: "message", Type: "string"},
			},
		},
		PrimaryType: "ClobAuth",
		Domain: apitypes.TypedDataDomain{
			Name:    "ClobAuthDomain",
			Version: "1",
			ChainId: (*ethmath.HexOrDecimal256)(new(big.Int).Set(a.chainID)),
		},
		Message: apitypes.TypedDataMessage{
			"address":   a.address.Hex(),
			"timestamp": timestamp,
			"nonce":     fmt.Sprintf("%d", nonce),
			"message":   "This message attests that I control the given wallet",
		},
	}

	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return "", fmt.Errorf("typed data hash: %w", err)
	}

	sig, err := crypto.Sign(hash, a.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign typed data: %w", err)
	}
	if sig[64] < 27 {
		sig[64] += 27
	}

	return "0x" + common.Bytes2Hex(sig), nil
}

// buildHMAC computes message = timestamp + method + path [+ body] signed
// with the API secret, base64url encoded.
func (a *Auth) buildHMAC(timestamp, method, path, body string) (string, error) {
	decoders := []*base64.Encoding{
		base64.URLEncoding,
		base64.RawURLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	}

	var secretBytes []byte
	var err error
	for _, dec := range decoders {
		secretBytes, err = dec.DecodeString(a.creds.Secret)
		if err == nil {
			break
		}
	}
	if err != nil {
		return "", fmt.Errorf("decode secret: %w", err)
	}

	message := timestamp + method + path + body

	mac := hmac.New(sha256.New, secretBytes)
	mac.Write([]byte(message))

	return base64.URLEncoding.EncodeToString(mac.Sum(nil)), nil
}
