package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"
	"golang.org/x/crypto/sha3"
)

const (
	CipherAES128CTR = "aes-128-ctr"
	KDFScrypt       = "scrypt"

	dkLen = 32
)

var ErrDecrypt = errors.New("could not decrypt: wrong key or corrupted data")

type CipherParams struct {
	IV string `json:"iv"` // Initialization vector
}

type KDFParams struct {
	DkLen int    `json:"dklen"` // Derived key length
	N     int    `json:"n"`     // CPU/Memory cost
	P     int    `json:"p"`     // Parallelization parameter
	R     int    `json:"r"`     // Block size
	Salt  string `json:"salt"`
}

// Crypto is the keystore-style envelope around an encrypted payload.
type Crypto struct {
	Cipher       string       `json:"cipher"`
	CipherText   string       `json:"ciphertext"`
	CipherParams CipherParams `json:"cipherparams"`
	KDF          string       `json:"kdf"`
	KDFParams    KDFParams    `json:"kdfparams"`
	MAC          string       `json:"mac"` // keccak256(dk[16:32] || ciphertext)
}

// ScryptParams 키 유도 비용
type ScryptParams struct {
	N int
	R int
	P int
}

var (
	StandardScrypt = ScryptParams{N: 1 << 17, R: 8, P: 1}
	// LightScrypt is for tests and low-memory machines.
	LightScrypt = ScryptParams{N: 1 << 12, R: 8, P: 6}
)

func Encrypt(plaintext []byte, passphrase string, params ScryptParams) (*Crypto, error) {
	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	dk, err := scrypt.Key([]byte(passphrase), salt, params.N, params.R, params.P, dkLen)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	ciphertext, err := aesCTR(dk[:16], iv, plaintext)
	if err != nil {
		return nil, err
	}

	return &Crypto{
		Cipher:       CipherAES128CTR,
		CipherText:   hex.EncodeToString(ciphertext),
		CipherParams: CipherParams{IV: hex.EncodeToString(iv)},
		KDF:          KDFScrypt,
		KDFParams: KDFParams{
			DkLen: dkLen,
			N:     params.N,
			P:     params.P,
			R:     params.R,
			Salt:  hex.EncodeToString(salt),
		},
		MAC: hex.EncodeToString(mac(dk, ciphertext)),
	}, nil
}

func Decrypt(c *Crypto, passphrase string) ([]byte, error) {
	if c.Cipher != CipherAES128CTR {
		return nil, fmt.Errorf("unsupported cipher: %s", c.Cipher)
	}
	if c.KDF != KDFScrypt {
		return nil, fmt.Errorf("unsupported kdf: %s", c.KDF)
	}

	salt, err := hex.DecodeString(c.KDFParams.Salt)
	if err != nil {
		return nil, fmt.Errorf("decode salt: %w", err)
	}
	iv, err := hex.DecodeString(c.CipherParams.IV)
	if err != nil {
		return nil, fmt.Errorf("decode iv: %w", err)
	}
	ciphertext, err := hex.DecodeString(c.CipherText)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	wantMAC, err := hex.DecodeString(c.MAC)
	if err != nil {
		return nil, fmt.Errorf("decode mac: %w", err)
	}

	kp := c.KDFParams
	if kp.DkLen < dkLen {
		return nil, fmt.Errorf("derived key too short: %d", kp.DkLen)
	}
	dk, err := scrypt.Key([]byte(passphrase), salt, kp.N, kp.R, kp.P, kp.DkLen)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	if !bytes.Equal(mac(dk, ciphertext), wantMAC) {
		return nil, ErrDecrypt
	}
	return aesCTR(dk[:16], iv, ciphertext)
}

func mac(dk, ciphertext []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(dk[16:32])
	h.Write(ciphertext)
	return h.Sum(nil)
}

func aesCTR(key, iv, in []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	out := make([]byte, len(in))
	cipher.NewCTR(block, iv).XORKeyStream(out, in)
	return out, nil
}
