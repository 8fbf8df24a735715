package main

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/binary"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hamza-m-farooqi/pygit/pkg/repo"
	"golang.org/x/crypto/ssh"
)

const (
	sshsigMagic     = "SSHSIG"
	sshsigVersion   = 1
	sshsigNamespace = "git"
	sshsigHashAlgo  = "sha512"
)

// newSSHCommitSigner loads an SSH private key and returns a signer that
// produces Git-compatible SSHSIG armor for the gpgsig commit header.
func newSSHCommitSigner(keyPath string) (repo.CommitSigner, string, error) {
	resolvedPath, err := resolveSigningKeyPath(keyPath)
	if err != nil {
		return nil, "", err
	}

	raw, err := os.ReadFile(resolvedPath)
	if err != nil {
		return nil, "", fmt.Errorf("read signing key %q: %w", resolvedPath, err)
	}
	signer, err := ssh.ParsePrivateKey(raw)
	if err != nil {
		return nil, "", fmt.Errorf("parse signing key %q: %w", resolvedPath, err)
	}

	commitSigner := func(payload []byte) (string, error) {
		return sshsigSign(signer, payload)
	}
	return commitSigner, resolvedPath, nil
}

// sshsigSign produces the armored SSHSIG blob over payload. The inner
// signature covers MAGIC || namespace || reserved || hashalg || H(payload)
// per the ssh-keygen SSHSIG scheme Git verifies.
func sshsigSign(signer ssh.Signer, payload []byte) (string, error) {
	digest := sha512.Sum512(payload)

	var signedData []byte
	signedData = append(signedData, sshsigMagic...)
	signedData = appendSSHString(signedData, []byte(sshsigNamespace))
	signedData = appendSSHString(signedData, nil) // reserved
	signedData = appendSSHString(signedData, []byte(sshsigHashAlgo))
	signedData = appendSSHString(signedData, digest[:])

	sig, err := signer.Sign(rand.Reader, signedData)
	if err != nil {
		return "", err
	}

	var sigWire []byte
	sigWire = appendSSHString(sigWire, []byte(sig.Format))
	sigWire = appendSSHString(sigWire, sig.Blob)

	var blob []byte
	blob = append(blob, sshsigMagic...)
	blob = binary.BigEndian.AppendUint32(blob, sshsigVersion)
	blob = appendSSHString(blob, signer.PublicKey().Marshal())
	blob = appendSSHString(blob, []byte(sshsigNamespace))
	blob = appendSSHString(blob, nil) // reserved
	blob = appendSSHString(blob, []byte(sshsigHashAlgo))
	blob = appendSSHString(blob, sigWire)

	armored := pem.EncodeToMemory(&pem.Block{Type: "SSH SIGNATURE", Bytes: blob})
	return strings.TrimRight(string(armored), "\n"), nil
}

// appendSSHString appends an SSH wire-format string: uint32 length + bytes.
func appendSSHString(dst, s []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(s)))
	return append(dst, s...)
}

// resolveSigningKeyPath expands the user-supplied key path, falling back
// to the conventional keys under ~/.ssh.
func resolveSigningKeyPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path != "" {
		if strings.HasPrefix(path, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("resolve home dir: %w", err)
			}
			path = filepath.Join(home, path[2:])
		}
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	candidates := []string{
		filepath.Join(home, ".ssh", "id_ed25519"),
		filepath.Join(home, ".ssh", "id_rsa"),
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("no SSH signing key found (tried %s)", strings.Join(candidates, ", "))
}
