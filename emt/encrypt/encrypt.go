// Package encrypt 登录密码的 RSA 加密。
//
// 平台要求登录密码用其公布的 RSA 公钥做 PKCS#1 v1.5 加密后再
// base64 提交。PKCS#1 v1.5 填充自带随机字节，同一明文每次加密的
// 密文都不同，因此不要缓存密文复用。
package encrypt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"

	"github.com/pkg/errors"
)

// PublicKeyPEM 平台公布的登录加密公钥
const PublicKeyPEM = `-----BEGIN PUBLIC KEY-----
MIGfMA0GCSqGSIb3DQEBAQUAA4GNADCBiQKBgQDHdsyxT66pDG4p73yope7jxA92
c0AT4qIJ/xtbBcHkFPK77upnsfDTJiVEuQDH+MiMeb+XhCLNKZGp0yaUU6GlxZdp
+nLW8b7Kmijr3iepaDhcbVTsYBWchaWUXauj9Lrhz58/6AE/NF0aMolxIGpsi+ST
2hSHPu3GSXMdhPCkWQIDAQAB
-----END PUBLIC KEY-----`

// Encrypt 用 PEM 公钥加密明文，返回 base64 密文
func Encrypt(plaintext, publicKeyPEM string) (string, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return "", errors.New("encrypt: no PEM block in public key")
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return "", errors.Wrap(err, "encrypt: parse public key")
	}

	rsaKey, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return "", errors.New("encrypt: public key is not RSA")
	}

	ciphertext, err := rsa.EncryptPKCS1v15(rand.Reader, rsaKey, []byte(plaintext))
	if err != nil {
		return "", errors.Wrap(err, "encrypt: rsa encrypt")
	}

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// EncryptPassword 用平台公钥加密登录密码
func EncryptPassword(password string) (string, error) {
	return Encrypt(password, PublicKeyPEM)
}
