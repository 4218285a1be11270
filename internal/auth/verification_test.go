package auth

import (
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/luchovc/agency-portal/internal"
)

var _ = Describe("CodeIssuer", func() {
	var (
		issuer *CodeIssuer
		clock  time.Time
	)

	BeforeEach(func() {
		issuer = NewCodeIssuer(10 * time.Minute)
		clock = time.Date(2025, 8, 10, 12, 0, 0, 0, time.UTC)
		issuer.now = func() time.Time { return clock }
	})

	It("issues codes from the unambiguous charset", func() {
		code, err := issuer.Issue("Lucho")
		Expect(err).ToNot(HaveOccurred())
		Expect(code.Code).To(HaveLen(codeLength))
		for _, r := range code.Code {
			Expect(strings.ContainsRune(codeCharset, r)).To(BeTrue())
		}
		Expect(code.ExpiresAt).To(Equal(clock.Add(10 * time.Minute)))
	})

	It("consumes a valid code exactly once", func() {
		code, err := issuer.Issue("Lucho")
		Expect(err).ToNot(HaveOccurred())

		Expect(issuer.Consume("Lucho", code.Code)).To(Succeed())
		Expect(issuer.Consume("Lucho", code.Code)).To(Equal(internal.ErrVerificationFailed))
	})

	It("matches handles case-insensitively and trims the code", func() {
		code, err := issuer.Issue("Lucho")
		Expect(err).ToNot(HaveOccurred())

		submitted := "  " + strings.ToLower(code.Code) + " "
		Expect(issuer.Consume("LUCHO", submitted)).To(Succeed())
	})

	It("rejects a wrong code without consuming the issued one", func() {
		code, err := issuer.Issue("Lucho")
		Expect(err).ToNot(HaveOccurred())

		Expect(issuer.Consume("Lucho", "WRONG999")).To(Equal(internal.ErrVerificationFailed))
		Expect(issuer.Consume("Lucho", code.Code)).To(Succeed())
	})

	It("expires codes after the ttl", func() {
		code, err := issuer.Issue("Lucho")
		Expect(err).ToNot(HaveOccurred())

		clock = clock.Add(11 * time.Minute)
		Expect(issuer.Consume("Lucho", code.Code)).To(Equal(internal.ErrVerificationExpired))
	})

	It("replaces a previous code on reissue", func() {
		first, err := issuer.Issue("Lucho")
		Expect(err).ToNot(HaveOccurred())
		second, err := issuer.Issue("Lucho")
		Expect(err).ToNot(HaveOccurred())

		if first.Code != second.Code {
			Expect(issuer.Consume("Lucho", first.Code)).To(Equal(internal.ErrVerificationFailed))
		}
		Expect(issuer.Consume("Lucho", second.Code)).To(Succeed())
	})

	Describe("Peek", func() {
		It("returns the live code without consuming it", func() {
			code, err := issuer.Issue("Lucho")
			Expect(err).ToNot(HaveOccurred())

			peeked, err := issuer.Peek("lucho")
			Expect(err).ToNot(HaveOccurred())
			Expect(peeked).To(Equal(code.Code))

			Expect(issuer.Consume("Lucho", code.Code)).To(Succeed())
		})

		It("fails for unknown handles", func() {
			_, err := issuer.Peek("Nadie")
			Expect(err).To(Equal(internal.ErrVerificationFailed))
		})

		It("fails for expired codes", func() {
			_, err := issuer.Issue("Lucho")
			Expect(err).ToNot(HaveOccurred())

			clock = clock.Add(time.Hour)
			_, err = issuer.Peek("Lucho")
			Expect(err).To(Equal(internal.ErrVerificationExpired))
		})
	})
})

var _ = Describe("JWTTokenGenerator", func() {
	var gen *JWTTokenGenerator

	BeforeEach(func() {
		gen = NewJWTTokenGenerator("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
	})

	It("round-trips an access token", func() {
		token, err := gen.GenerateAccessToken(7, "Lucho")
		Expect(err).ToNot(HaveOccurred())

		claims, err := gen.ValidateToken(token)
		Expect(err).ToNot(HaveOccurred())
		Expect(claims.UserID).To(Equal(int64(7)))
		Expect(claims.HabboName).To(Equal("Lucho"))
	})

	It("round-trips a refresh token despite the different secret", func() {
		token, err := gen.GenerateRefreshToken(7, "Lucho")
		Expect(err).ToNot(HaveOccurred())

		claims, err := gen.ValidateToken(token)
		Expect(err).ToNot(HaveOccurred())
		Expect(claims.UserID).To(Equal(int64(7)))
	})

	It("rejects tokens signed with another secret", func() {
		other := NewJWTTokenGenerator("evil", "evil", 15*time.Minute, 24*time.Hour)
		token, err := other.GenerateAccessToken(7, "Lucho")
		Expect(err).ToNot(HaveOccurred())

		_, err = gen.ValidateToken(token)
		Expect(err).To(Equal(internal.ErrInvalidToken))
	})

	It("rejects garbage", func() {
		_, err := gen.ValidateToken("not-a-token")
		Expect(err).To(Equal(internal.ErrInvalidToken))
	})
})
