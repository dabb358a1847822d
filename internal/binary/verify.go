package binary

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
)

// VerificationMethod names a check applied to a downloaded artifact.
type VerificationMethod string

const (
	// VerificationSHA256 compares against a pinned SHA256 digest.
	VerificationSHA256 VerificationMethod = "sha256"
	// VerificationGPG checks a detached OpenPGP signature.
	VerificationGPG VerificationMethod = "gpg"
)

// VerifyOptions selects the checks to run. Empty fields are skipped.
type VerifyOptions struct {
	// Checksum is the expected hex SHA256 of the artifact.
	Checksum string
	// KeyringPath is an armored or binary OpenPGP keyring.
	KeyringPath string
	// SignaturePath is the detached signature of the artifact.
	SignaturePath string
}

// Verifier handles cryptographic verification of downloaded artifacts
type Verifier struct{}

// NewVerifier creates a new verifier
func NewVerifier() *Verifier {
	return &Verifier{}
}

// Verify runs the checks selected by opts and returns the methods that
// passed. Any mismatch is an ErrVerification.
func (v *Verifier) Verify(artifactPath string, opts VerifyOptions) ([]VerificationMethod, error) {
	var passed []VerificationMethod

	if opts.Checksum != "" {
		if err := v.verifySHA256(artifactPath, opts.Checksum); err != nil {
			return passed, err
		}
		passed = append(passed, VerificationSHA256)
	}

	if opts.KeyringPath != "" {
		if opts.SignaturePath == "" {
			return passed, typed(ErrVerification, fmt.Errorf("signature required but not available"))
		}
		if err := v.verifyGPG(artifactPath, opts.SignaturePath, opts.KeyringPath); err != nil {
			return passed, err
		}
		passed = append(passed, VerificationGPG)
	}

	return passed, nil
}

// verifySHA256 compares the digest of the artifact with expected
func (v *Verifier) verifySHA256(artifactPath, expected string) error {
	actual, err := calculateSHA256(artifactPath)
	if err != nil {
		return fmt.Errorf("calculate checksum: %w", err)
	}

	expected = normalizeChecksum(expected)
	if !strings.EqualFold(actual, expected) {
		return typed(ErrVerification, fmt.Errorf("checksum mismatch"),
			"actual", actual, "expected", expected)
	}
	return nil
}

// normalizeChecksum strips whitespace and an optional "sha256:" prefix.
func normalizeChecksum(sum string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(sum), "sha256:"))
}

// verifyGPG verifies a file using a detached GPG signature
func (v *Verifier) verifyGPG(artifactPath, signaturePath, keyringPath string) error {
	keyring, err := loadKeyring(keyringPath)
	if err != nil {
		return typed(ErrVerification, fmt.Errorf("load keyring: %w", err), "keyring", keyringPath)
	}

	artifact, err := os.Open(artifactPath)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer artifact.Close()

	sigFile, err := os.Open(signaturePath)
	if err != nil {
		return fmt.Errorf("open signature: %w", err)
	}
	defer sigFile.Close()

	// Try armored first
	_, err = openpgp.CheckArmoredDetachedSignature(keyring, artifact, sigFile, nil)
	if err != nil {
		artifact.Seek(0, io.SeekStart)
		sigFile.Seek(0, io.SeekStart)
		_, err = openpgp.CheckDetachedSignature(keyring, artifact, sigFile, nil)
	}
	if err != nil {
		return typed(ErrVerification, fmt.Errorf("verify signature: %w", err))
	}
	return nil
}

// loadKeyring reads an armored or binary keyring
func loadKeyring(keyringPath string) (openpgp.EntityList, error) {
	keyringFile, err := os.Open(keyringPath)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	defer keyringFile.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(keyringFile)
	if err != nil {
		// Try reading as non-armored keyring
		keyringFile.Seek(0, io.SeekStart)
		keyring, err = openpgp.ReadKeyRing(keyringFile)
		if err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
	}

	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring is empty")
	}

	return keyring, nil
}

// calculateSHA256 calculates the SHA256 checksum of a file
func calculateSHA256(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
