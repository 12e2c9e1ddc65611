package routing

import (
	"fmt"

	"github.com/pobyzaarif/goshortcute"
)

// encryptBIN encrypts a card BIN for storage. The key length must be
// 16, 24 or 32 bytes; config enforces that at startup.
func encryptBIN(bin, key string) (string, error) {
	encrypted, err := goshortcute.AESCBCEncrypt([]byte(bin), []byte(key))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt bin: %w", err)
	}
	return goshortcute.StringtoBase64Encode(encrypted), nil
}

// decryptBIN reverses encryptBIN for operator tooling.
func decryptBIN(cipher, key string) (string, error) {
	decoded := goshortcute.StringtoBase64Decode(cipher)
	decrypted, err := goshortcute.AESCBCDecrypt([]byte(decoded), []byte(key))
	if err != nil {
		return "", fmt.Errorf("failed to decrypt bin: %w", err)
	}
	return decrypted, nil
}
