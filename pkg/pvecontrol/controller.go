package pvecontrol

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/yndnr/pveapi-go/internal/telemetry/logger"
	"github.com/yndnr/pveapi-go/pkg/cmap"
	"github.com/yndnr/pveapi-go/pkg/pveapi"
)

// VMPathPrefix is the ACL path prefix of a guest, "/vms/<vmid>".
const VMPathPrefix = "/vms/"

var vmPathPattern = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(VMPathPrefix))

// ErrUserNotFound is returned by SetUser when the user is absent from /access/users.
var ErrUserNotFound = errors.New("pvecontrol: user not found")

// API is the subset of *pveapi.Client the controller needs.
type API interface {
	ListUsers(ctx context.Context) ([]pveapi.User, error)
	ListACL(ctx context.Context) ([]pveapi.ACLEntry, error)
}

// VMGrant is an ACL entry of the subject with the VMID derived from its path.
type VMGrant struct {
	pveapi.ACLEntry
	VMID string `json:"vmid"`
}

// Subject is a user together with its ACL grants.
type Subject struct {
	UserID  string       `json:"userid"`
	Enabled bool         `json:"enable"`
	Config  *pveapi.User `json:"config"`
	ACLVMs  []VMGrant    `json:"aclvms"`
}

// Controller caches subjects built from one API connection.
type Controller struct {
	api      API
	log      logger.Logger
	subjects *cmap.Map[string, *Subject]
}

// New returns a controller over api.
func New(api API, l logger.Logger) *Controller {
	if l == nil {
		l = logger.Default()
	}
	return &Controller{
		api:      api,
		log:      l,
		subjects: cmap.New[string, *Subject](),
	}
}

// SetUser loads userid and its ACL entries and caches the result.
// The user must exist; ACL entries are matched on ugid.
func (c *Controller) SetUser(ctx context.Context, userid string) (*Subject, error) {
	userid = strings.TrimSpace(userid)

	users, err := c.api.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var config *pveapi.User
	for i := range users {
		if users[i].UserID == userid {
			config = &users[i]
			break
		}
	}
	if config == nil {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userid)
	}

	acl, err := c.api.ListACL(ctx)
	if err != nil {
		return nil, fmt.Errorf("list acl: %w", err)
	}

	s := &Subject{
		UserID:  userid,
		Enabled: bool(config.Enable),
		Config:  config,
		ACLVMs:  grantsFor(userid, acl),
	}
	c.subjects.Set(userid, s)
	c.log.Debug("subject cached", "user", userid, "grants", len(s.ACLVMs))
	return s, nil
}

// User returns a cached subject.
func (c *Controller) User(userid string) (*Subject, bool) {
	return c.subjects.Get(strings.TrimSpace(userid))
}

// Users returns the cached user IDs, sorted.
func (c *Controller) Users() []string {
	ids := c.subjects.Keys()
	sort.Strings(ids)
	return ids
}

// Forget drops a cached subject.
func (c *Controller) Forget(userid string) bool {
	return c.subjects.Delete(strings.TrimSpace(userid))
}

// grantsFor returns the entries whose ugid is userid, in ACL order.
func grantsFor(userid string, acl []pveapi.ACLEntry) []VMGrant {
	var grants []VMGrant
	for _, e := range acl {
		if e.UGID != userid {
			continue
		}
		grants = append(grants, VMGrant{
			ACLEntry: e,
			VMID:     vmPathPattern.ReplaceAllString(e.Path, ""),
		})
	}
	return grants
}
