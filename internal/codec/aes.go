package codec

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	saltedMagic = "Salted__"
	saltLen     = 8
	keyLen      = 32
	ivLen       = aes.BlockSize
)

// EVPBytesToKey derives key and IV the way OpenSSL's legacy
// EVP_BytesToKey does with MD5 and a single iteration.
func EVPBytesToKey(password, salt []byte, kLen, vLen int) (key, iv []byte) {
	derived := make([]byte, 0, kLen+vLen+md5.Size)
	var block []byte

	for len(derived) < kLen+vLen {
		h := md5.New()
		h.Write(block)
		h.Write(password)
		h.Write(salt)
		block = h.Sum(nil)
		derived = append(derived, block...)
	}

	return derived[:kLen], derived[kLen : kLen+vLen]
}

// DecodeAESPayload decrypts an OpenSSL "Salted__" blob produced by
// `openssl enc -aes-256-cbc -md md5`. The plaintext must be UTF-8.
func DecodeAESPayload(blob []byte, password string) (string, error) {
	if len(blob) < len(saltedMagic)+saltLen || string(blob[:len(saltedMagic)]) != saltedMagic {
		return "", fmt.Errorf("%w: missing %q header", ErrDecode, saltedMagic)
	}

	salt := blob[len(saltedMagic) : len(saltedMagic)+saltLen]
	key, iv := EVPBytesToKey([]byte(password), salt, keyLen, ivLen)

	return decryptCBC(blob[len(saltedMagic)+saltLen:], key, iv)
}

// DecodeAESBase64 is DecodeAESPayload for the base64 text form, which is what
// CryptoJS.AES.encrypt(...).toString() produces.
func DecodeAESBase64(text, password string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(strings.TrimSpace(text))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return DecodeAESPayload(blob, password)
}

type cryptoJSON struct {
	CT string `json:"ct"`
	IV string `json:"iv"`
	S  string `json:"s"`
}

// DecodeCryptoJSON decrypts the {"ct","iv","s"} envelope emitted by the
// CryptoJS JSON formatter (base64 ciphertext, hex IV, hex salt).
func DecodeCryptoJSON(envelope, password string) (string, error) {
	var env cryptoJSON
	if err := json.Unmarshal([]byte(envelope), &env); err != nil {
		return "", fmt.Errorf("%w: envelope: %v", ErrDecode, err)
	}

	ct, err := base64.StdEncoding.DecodeString(env.CT)
	if err != nil {
		return "", fmt.Errorf("%w: ct: %v", ErrDecode, err)
	}
	salt, err := hex.DecodeString(env.S)
	if err != nil || len(salt) != saltLen {
		return "", fmt.Errorf("%w: bad salt %q", ErrDecode, env.S)
	}

	key, iv := EVPBytesToKey([]byte(password), salt, keyLen, ivLen)
	if env.IV != "" {
		given, err := hex.DecodeString(env.IV)
		if err != nil || len(given) != ivLen {
			return "", fmt.Errorf("%w: bad iv %q", ErrDecode, env.IV)
		}
		iv = given
	}

	return decryptCBC(ct, key, iv)
}

// SealAESPayload is the inverse of DecodeAESPayload. A nil salt is replaced
// with random bytes.
func SealAESPayload(plaintext []byte, password string, salt []byte) ([]byte, error) {
	if salt == nil {
		salt = make([]byte, saltLen)
		if _, err := rand.Read(salt); err != nil {
			return nil, err
		}
	}
	if len(salt) != saltLen {
		return nil, fmt.Errorf("salt must be %d bytes, got %d", saltLen, len(salt))
	}

	key, iv := EVPBytesToKey([]byte(password), salt, keyLen, ivLen)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	pad := aes.BlockSize - len(plaintext)%aes.BlockSize
	buf := append(append([]byte{}, plaintext...), bytes.Repeat([]byte{byte(pad)}, pad)...)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(buf, buf)

	out := make([]byte, 0, len(saltedMagic)+saltLen+len(buf))
	out = append(out, saltedMagic...)
	out = append(out, salt...)
	return append(out, buf...), nil
}

// SealCryptoJSON encrypts plaintext into a CryptoJS JSON envelope with a
// random salt.
func SealCryptoJSON(plaintext []byte, password string) (string, error) {
	blob, err := SealAESPayload(plaintext, password, nil)
	if err != nil {
		return "", err
	}

	salt := blob[len(saltedMagic) : len(saltedMagic)+saltLen]
	_, iv := EVPBytesToKey([]byte(password), salt, keyLen, ivLen)

	env, err := json.Marshal(cryptoJSON{
		CT: base64.StdEncoding.EncodeToString(blob[len(saltedMagic)+saltLen:]),
		IV: hex.EncodeToString(iv),
		S:  hex.EncodeToString(salt),
	})
	if err != nil {
		return "", err
	}
	return string(env), nil
}

func decryptCBC(ct, key, iv []byte) (string, error) {
	if len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d is not a multiple of %d", ErrDecode, len(ct), aes.BlockSize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ct)

	plain, err = unpad(plain)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plain) {
		return "", fmt.Errorf("%w: plaintext is not utf-8", ErrDecode)
	}

	return string(plain), nil
}

func unpad(b []byte) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, fmt.Errorf("%w: bad padding", ErrDecode)
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, fmt.Errorf("%w: bad padding", ErrDecode)
		}
	}

	return b[:len(b)-n], nil
}
