package localsigner_test

import (
	"context"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/make-os/nostrgit/internal/localsigner"
	"github.com/make-os/nostrgit/pkgs/bech32"
)

func TestLocalsigner(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Localsigner Suite")
}

var _ = Describe("Signer", func() {
	var rawKey []byte

	BeforeEach(func() {
		priv, err := btcec.NewPrivateKey()
		Expect(err).NotTo(HaveOccurred())
		rawKey = priv.Serialize()
	})

	It("derives the schnorr public key from a raw hex secret", func() {
		s, err := localsigner.FromSecret(hex.EncodeToString(rawKey))
		Expect(err).NotTo(HaveOccurred())

		_, pub := btcec.PrivKeyFromBytes(rawKey)
		wantPub := hex.EncodeToString(schnorr.SerializePubKey(pub))

		gotPub, err := s.PublicKey(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(gotPub).To(Equal(wantPub))
	})

	It("accepts a bech32 nsec secret equivalently to its hex form", func() {
		nsec, err := bech32.ConvertAndEncode("nsec", rawKey)
		Expect(err).NotTo(HaveOccurred())

		fromNsec, err := localsigner.FromSecret(nsec)
		Expect(err).NotTo(HaveOccurred())
		fromHex, err := localsigner.FromSecret(hex.EncodeToString(rawKey))
		Expect(err).NotTo(HaveOccurred())

		p1, _ := fromNsec.PublicKey(context.Background())
		p2, _ := fromHex.PublicKey(context.Background())
		Expect(p1).To(Equal(p2))
	})

	It("rejects a secret that isn't 32 bytes of hex", func() {
		_, err := localsigner.FromSecret("not-hex-at-all")
		Expect(err).To(HaveOccurred())
	})

	It("produces a signature that verifies against its own public key", func() {
		s, err := localsigner.FromSecret(hex.EncodeToString(rawKey))
		Expect(err).NotTo(HaveOccurred())

		digest := make([]byte, 32)
		for i := range digest {
			digest[i] = byte(i)
		}
		sig, err := s.Sign(context.Background(), digest)
		Expect(err).NotTo(HaveOccurred())

		pubHex, _ := s.PublicKey(context.Background())
		pubBytes, err := hex.DecodeString(pubHex)
		Expect(err).NotTo(HaveOccurred())
		pubKey, err := schnorr.ParsePubKey(pubBytes)
		Expect(err).NotTo(HaveOccurred())

		parsedSig, err := schnorr.ParseSignature(sig)
		Expect(err).NotTo(HaveOccurred())
		Expect(parsedSig.Verify(digest, pubKey)).To(BeTrue())
	})

	Describe("FromGitConfig", func() {
		It("surfaces a helpful error when nostr.nsec is unset", func() {
			_, err := localsigner.FromGitConfig(func(key string) (string, bool, error) {
				return "", false, nil
			})
			Expect(err).To(HaveOccurred())
		})

		It("loads the secret from the configured key", func() {
			want := hex.EncodeToString(rawKey)
			s, err := localsigner.FromGitConfig(func(key string) (string, bool, error) {
				Expect(key).To(Equal(localsigner.ConfigKey))
				return want, true, nil
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(s).NotTo(BeNil())
		})

		It("propagates a read failure from the config backend", func() {
			_, err := localsigner.FromGitConfig(func(key string) (string, bool, error) {
				return "", false, fmt.Errorf("git config exploded")
			})
			Expect(err).To(HaveOccurred())
		})
	})
})
