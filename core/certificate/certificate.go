// Package certificate issues and verifies course completion certificates.
//
// Verification tokens are a non-cryptographic checksum of the issuance context. They let a viewer
// spot an edited certificate; they prove nothing to anyone able to recompute the checksum.
package certificate

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"

	"github.com/trezcool/lms/core"
	"github.com/trezcool/lms/core/catalog"
	"github.com/trezcool/lms/core/user"
)

// NewID returns a certificate id: CERT-<unix millis>-<random>.
func NewID(at time.Time) string {
	random := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:9])
	return "CERT-" + strconv.FormatInt(at.UnixNano()/int64(time.Millisecond), 10) + "-" + random
}

// Token derives the verification token of a certificate from its issuance context.
func Token(courseID, userID string, issuedAt time.Time) string {
	millis := issuedAt.UnixNano() / int64(time.Millisecond)
	return core.ChecksumHex(courseID + "-" + userID + "-" + strconv.FormatInt(millis, 10))
}

// New builds the certificate of usr for course. Title, instructor and student name are copied.
func New(usr user.User, course catalog.Course, score int, at time.Time) user.Certificate {
	at = at.UTC().Truncate(time.Millisecond)
	return user.Certificate{
		ID:                NewID(at),
		CourseID:          course.ID,
		CourseTitle:       course.Title,
		StudentName:       usr.Name,
		Instructor:        course.Instructor,
		Score:             score,
		IssuedAt:          at,
		VerificationToken: Token(course.ID, usr.ID, at),
	}
}

// Has reports whether usr already holds a certificate for the course.
func Has(usr user.User, courseID string) bool {
	for _, c := range usr.Certificates {
		if c.CourseID == courseID {
			return true
		}
	}
	return false
}

type Service struct {
	users   *user.Service
	catalog catalog.Catalog
	log     core.Logger
}

func NewService(users *user.Service, cat catalog.Catalog, log core.Logger) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(users, "users"),
		vala.IsNotNil(cat, "cat"),
		vala.IsNotNil(log, "log"),
	).CheckAndPanic()
	return &Service{users: users, catalog: cat, log: log}
}

// Issue appends a new certificate for the course to the user's certificates.
func (svc *Service) Issue(userID, courseID string, score int) (user.Certificate, error) {
	course, ok := svc.catalog.GetCourse(courseID)
	if !ok {
		return user.Certificate{}, core.NewError(core.ErrNotFound, "course "+courseID+" not found")
	}
	var cert user.Certificate
	_, err := svc.users.Mutate(userID, func(usr *user.User) error {
		cert = New(*usr, course, score, core.NowFunc())
		usr.Certificates = append(usr.Certificates, cert)
		return nil
	})
	if err != nil {
		if core.IsStorageFailure(err) {
			return cert, err
		}
		return user.Certificate{}, err
	}
	svc.log.Info("certificate issued", "user", userID, "certificate", cert.ID)
	return cert, nil
}

// ListForUser returns the user's certificates in issuance order.
func (svc *Service) ListForUser(userID string) ([]user.Certificate, error) {
	usr, err := svc.users.Get(userID)
	if err != nil {
		return nil, err
	}
	return usr.Certificates, nil
}

// Get returns one of the user's certificates.
func (svc *Service) Get(userID, certID string) (user.Certificate, error) {
	certs, err := svc.ListForUser(userID)
	if err != nil {
		return user.Certificate{}, err
	}
	for _, c := range certs {
		if c.ID == certID {
			return c, nil
		}
	}
	return user.Certificate{}, core.NewError(core.ErrNotFound, "certificate "+certID+" not found")
}

type Verification struct {
	Valid       bool              `json:"valid"`
	Certificate *user.Certificate `json:"certificate,omitempty"`
	OwnerID     string            `json:"ownerId,omitempty"`
}

// Verify looks the certificate up across all users. It is valid when found and its stored token
// matches the one recomputed from its issuance context. An unknown id is simply not valid.
func (svc *Service) Verify(certID string) (Verification, error) {
	users, err := svc.users.QueryAll()
	if err != nil {
		return Verification{}, err
	}
	for _, usr := range users {
		for _, c := range usr.Certificates {
			if c.ID != certID {
				continue
			}
			cert := c
			return Verification{
				Valid:       c.VerificationToken == Token(c.CourseID, usr.ID, c.IssuedAt),
				Certificate: &cert,
				OwnerID:     usr.ID,
			}, nil
		}
	}
	return Verification{}, nil
}

// VerifyCode is Verify, additionally requiring the presented code to match the token.
func (svc *Service) VerifyCode(certID, code string) (Verification, error) {
	v, err := svc.Verify(certID)
	if err != nil || !v.Valid {
		return v, err
	}
	v.Valid = strings.EqualFold(strings.TrimSpace(code), v.Certificate.VerificationToken)
	return v, nil
}
