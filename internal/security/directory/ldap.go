package directory

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/db/repository"
	"github.com/lobkit/identity/internal/problem"
)

// LDAP user directory parameters.
const (
	ParamHost                  = "Host"
	ParamPort                  = "Port"
	ParamUseSSL                = "UseSSL"
	ParamUseTLS                = "UseTLS"
	ParamSkipVerify            = "SkipVerify"
	ParamBindDN                = "BindDN"
	ParamBindPassword          = "BindPassword"
	ParamBaseDN                = "BaseDN"
	ParamUserFilter            = "UserFilter"
	ParamGroupBaseDN           = "GroupBaseDN"
	ParamGroupFilter           = "GroupFilter"
	ParamUsernameAttribute     = "UsernameAttribute"
	ParamEmailAttribute        = "EmailAttribute"
	ParamFirstNameAttribute    = "FirstNameAttribute"
	ParamLastNameAttribute     = "LastNameAttribute"
	ParamPhoneNumberAttribute  = "PhoneNumberAttribute"
	ParamMobileNumberAttribute = "MobileNumberAttribute"
	ParamGroupNameAttribute    = "GroupNameAttribute"
	ParamTimeout               = "Timeout"
)

var ldapCapabilities = Capabilities{
	SupportsAdminChangePassword: true,
	SupportsChangePassword:      true,
}

// LDAPConfig holds the connection and schema settings of an LDAP user directory.
type LDAPConfig struct {
	// Host is the LDAP server hostname or IP address.
	Host string
	// Port is the LDAP server port, 389 for LDAP and 636 for LDAPS.
	Port int
	// UseSSL connects with LDAPS.
	UseSSL bool
	// UseTLS upgrades a plain connection with StartTLS.
	UseTLS bool
	// SkipVerify skips TLS certificate verification.
	SkipVerify bool
	// BindDN and BindPassword are the service account used for searches.
	BindDN       string
	BindPassword string
	// BaseDN is where users are searched.
	BaseDN string
	// UserFilter finds a user, {username} is replaced with the escaped username.
	UserFilter string
	// GroupBaseDN is where groups are searched. Group memberships are not synchronised when empty.
	GroupBaseDN string
	// GroupFilter finds the groups of a user, {userdn} is replaced with the escaped user DN.
	GroupFilter string

	UsernameAttr     string
	EmailAttr        string
	FirstNameAttr    string
	LastNameAttr     string
	PhoneNumberAttr  string
	MobileNumberAttr string
	GroupNameAttr    string

	// Timeout is the connection and search timeout in seconds.
	Timeout int
}

// Conn is the part of *ldap.Conn the LDAP user directory uses.
type Conn interface {
	Bind(username, password string) error
	Search(searchRequest *ldap.SearchRequest) (*ldap.SearchResult, error)
	PasswordModify(passwordModifyRequest *ldap.PasswordModifyRequest) (*ldap.PasswordModifyResult, error)
	Close() error
}

// Dialer opens a connection to the LDAP server of cfg.
type Dialer func(cfg *LDAPConfig) (Conn, error)

// DialLDAP connects with go-ldap, using LDAPS or StartTLS as configured.
func DialLDAP(cfg *LDAPConfig) (Conn, error) {
	hostPort := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	ldapURL := "ldap://" + hostPort
	if cfg.UseSSL {
		ldapURL = "ldaps://" + hostPort
	}

	var tlsConfig *tls.Config
	if cfg.UseSSL || cfg.UseTLS {
		tlsConfig = &tls.Config{
			InsecureSkipVerify: cfg.SkipVerify, //nolint:gosec // opt-in per user directory
			ServerName:         cfg.Host,
		}
	}

	timeout := time.Duration(cfg.Timeout) * time.Second

	conn, err := ldap.DialURL(ldapURL,
		ldap.DialWithTLSConfig(tlsConfig),
		ldap.DialWithDialer(&net.Dialer{Timeout: timeout}))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LDAP server: %w", err)
	}

	if !cfg.UseSSL && cfg.UseTLS {
		if errStartTLS := conn.StartTLS(tlsConfig); errStartTLS != nil {
			if errClose := conn.Close(); errClose != nil {
				log.Error().Err(errClose).Msg("failed to close LDAP connection")
			}

			return nil, fmt.Errorf("failed to start TLS: %w", errStartTLS)
		}
	}

	conn.SetTimeout(timeout)

	return conn, nil
}

// LDAP authenticates users against an LDAP server and mirrors them into the security schema.
type LDAP struct {
	id    uuid.UUID
	cfg   LDAPConfig
	repos *repository.Repositories
	dial  Dialer
}

func newLDAP(id uuid.UUID, p parameters, repos *repository.Repositories, dial Dialer) (*LDAP, error) {
	cfg := LDAPConfig{
		Host:             p.String(ParamHost, ""),
		BindDN:           p.String(ParamBindDN, ""),
		BindPassword:     p.String(ParamBindPassword, ""),
		BaseDN:           p.String(ParamBaseDN, ""),
		UserFilter:       p.String(ParamUserFilter, "(uid={username})"),
		GroupBaseDN:      p.String(ParamGroupBaseDN, ""),
		GroupFilter:      p.String(ParamGroupFilter, "(member={userdn})"),
		UsernameAttr:     p.String(ParamUsernameAttribute, "uid"),
		EmailAttr:        p.String(ParamEmailAttribute, "mail"),
		FirstNameAttr:    p.String(ParamFirstNameAttribute, "givenName"),
		LastNameAttr:     p.String(ParamLastNameAttribute, "sn"),
		PhoneNumberAttr:  p.String(ParamPhoneNumberAttribute, "telephoneNumber"),
		MobileNumberAttr: p.String(ParamMobileNumberAttribute, "mobile"),
		GroupNameAttr:    p.String(ParamGroupNameAttribute, "cn"),
	}

	var err error

	if cfg.UseSSL, err = p.Bool(ParamUseSSL, false); err != nil {
		return nil, err
	}

	if cfg.UseTLS, err = p.Bool(ParamUseTLS, false); err != nil {
		return nil, err
	}

	if cfg.SkipVerify, err = p.Bool(ParamSkipVerify, false); err != nil {
		return nil, err
	}

	defaultPort := 389
	if cfg.UseSSL {
		defaultPort = 636
	}

	if cfg.Port, err = p.Int(ParamPort, defaultPort); err != nil {
		return nil, err
	}

	if cfg.Timeout, err = p.Int(ParamTimeout, 10); err != nil { //nolint:mnd
		return nil, err
	}

	if cfg.Host == "" || cfg.BaseDN == "" {
		return nil, fmt.Errorf("%w: parameters %s and %s are required", problem.ErrInvalidArgument, ParamHost, ParamBaseDN)
	}

	return &LDAP{id: id, cfg: cfg, repos: repos, dial: dial}, nil
}

// ID implements UserDirectory.
func (d *LDAP) ID() uuid.UUID {
	return d.id
}

// Capabilities implements UserDirectory.
func (d *LDAP) Capabilities() Capabilities {
	return ldapCapabilities
}

// Config returns the parsed LDAP settings.
func (d *LDAP) Config() LDAPConfig {
	return d.cfg
}

// Authenticate implements UserDirectory. On success the user and the names of their LDAP groups
// are mirrored into the security schema.
func (d *LDAP) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	if password == "" {
		// an empty password would be an unauthenticated bind that most servers accept
		return nil, problem.ErrAuthenticationFailed
	}

	var (
		entry  *ldap.Entry
		groups []string
	)

	err := d.withConn(func(conn Conn) error {
		var err error

		if entry, err = d.findUser(conn, username); err != nil {
			return err
		}

		if err = d.bindUser(conn, entry.DN, password); err != nil {
			return err
		}

		if err = d.bindService(conn); err != nil {
			return err
		}

		groups, err = d.findGroupNames(conn, entry.DN)

		return err
	})
	if errors.Is(err, problem.ErrUserNotFound) {
		return nil, problem.ErrAuthenticationFailed
	}

	if err != nil {
		return nil, err
	}

	var user *models.User

	err = d.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error

		if user, err = d.mirrorUser(ctx, tx, username, entry); err != nil {
			return err
		}

		return d.syncGroups(ctx, tx, user, groups)
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// ChangePassword implements UserDirectory using the password modify extended operation.
func (d *LDAP) ChangePassword(_ context.Context, username, password, newPassword string) error {
	return d.withConn(func(conn Conn) error {
		entry, err := d.findUser(conn, username)
		if errors.Is(err, problem.ErrUserNotFound) {
			return problem.ErrAuthenticationFailed
		}

		if err != nil {
			return err
		}

		if err = d.bindUser(conn, entry.DN, password); err != nil {
			return err
		}

		return d.modifyPassword(conn, entry.DN, password, newPassword)
	})
}

// AdminChangePassword implements UserDirectory. Expiry, locks and history are managed by the
// LDAP server, so only the password is changed.
func (d *LDAP) AdminChangePassword(_ context.Context, username, newPassword string, _ AdminPasswordOptions) error {
	return d.withConn(func(conn Conn) error {
		entry, err := d.findUser(conn, username)
		if err != nil {
			return err
		}

		return d.modifyPassword(conn, entry.DN, "", newPassword)
	})
}

// ResetPassword implements UserDirectory.
func (d *LDAP) ResetPassword(ctx context.Context, username, newPassword string) error {
	return d.AdminChangePassword(ctx, username, newPassword, AdminPasswordOptions{})
}

// CreateUser implements UserDirectory.
func (d *LDAP) CreateUser(context.Context, *models.User, bool, bool) error {
	return unsupported("create user")
}

// UpdateUser implements UserDirectory.
func (d *LDAP) UpdateUser(context.Context, *models.User, bool, bool) error {
	return unsupported("update user")
}

// DeleteUser implements UserDirectory.
func (d *LDAP) DeleteUser(context.Context, string) error {
	return unsupported("delete user")
}

// GetUser implements UserDirectory. Users not mirrored yet are looked up on the LDAP server and mirrored.
func (d *LDAP) GetUser(ctx context.Context, username string) (*models.User, error) {
	user, err := d.repos.Users.FindByUsername(ctx, d.id, username)
	if !errors.Is(err, problem.ErrUserNotFound) {
		return user, err
	}

	var entry *ldap.Entry

	err = d.withConn(func(conn Conn) error {
		var err error
		entry, err = d.findUser(conn, username)

		return err
	})
	if err != nil {
		return nil, err
	}

	err = d.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		user, err = d.mirrorUser(ctx, tx, username, entry)

		return err
	})

	return user, err
}

// IsExistingUser implements UserDirectory.
func (d *LDAP) IsExistingUser(ctx context.Context, username string) (bool, error) {
	mirrored, err := d.repos.Users.ExistsByUsername(ctx, d.id, username)
	if err != nil || mirrored {
		return mirrored, err
	}

	err = d.withConn(func(conn Conn) error {
		_, err := d.findUser(conn, username)
		return err
	})
	if errors.Is(err, problem.ErrUserNotFound) {
		return false, nil
	}

	return err == nil, err
}

// withConn dials, binds the service account and runs fn.
func (d *LDAP) withConn(fn func(conn Conn) error) error {
	conn, err := d.dial(&d.cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", problem.ErrServiceUnavailable, err)
	}

	defer func() {
		if errClose := conn.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close LDAP connection")
		}
	}()

	if err = d.bindService(conn); err != nil {
		return err
	}

	return fn(conn)
}

// bindService binds with the configured service account, if any.
func (d *LDAP) bindService(conn Conn) error {
	if d.cfg.BindDN == "" {
		return nil
	}

	if err := conn.Bind(d.cfg.BindDN, d.cfg.BindPassword); err != nil {
		return fmt.Errorf("%w: failed to bind with service account: %w", problem.ErrServiceUnavailable, err)
	}

	return nil
}

// bindUser binds as the user; invalid credentials fail with ErrAuthenticationFailed.
func (d *LDAP) bindUser(conn Conn, userDN, password string) error {
	err := conn.Bind(userDN, password)

	switch {
	case err == nil:
		return nil
	case ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials):
		return problem.ErrAuthenticationFailed
	default:
		return fmt.Errorf("%w: %w", problem.ErrServiceUnavailable, err)
	}
}

// findUser searches the entry of a username.
func (d *LDAP) findUser(conn Conn, username string) (*ldap.Entry, error) {
	filter := strings.ReplaceAll(d.cfg.UserFilter, "{username}", ldap.EscapeFilter(username))
	searchRequest := ldap.NewSearchRequest(
		d.cfg.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, // Size limit
		d.cfg.Timeout,
		false,
		filter,
		[]string{
			d.cfg.UsernameAttr,
			d.cfg.EmailAttr,
			d.cfg.FirstNameAttr,
			d.cfg.LastNameAttr,
			d.cfg.PhoneNumberAttr,
			d.cfg.MobileNumberAttr,
			"cn",
		},
		nil,
	)

	result, err := conn.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to search for user: %w", problem.ErrServiceUnavailable, err)
	}

	switch len(result.Entries) {
	case 0:
		return nil, problem.ErrUserNotFound
	case 1:
		return result.Entries[0], nil
	default:
		return nil, fmt.Errorf("%w: username %s matches %d LDAP entries",
			problem.ErrInvalidArgument, username, len(result.Entries))
	}
}

// findGroupNames returns the names of the groups the user DN is a member of.
func (d *LDAP) findGroupNames(conn Conn, userDN string) ([]string, error) {
	if d.cfg.GroupBaseDN == "" {
		return nil, nil
	}

	filter := strings.ReplaceAll(d.cfg.GroupFilter, "{userdn}", ldap.EscapeFilter(userDN))
	searchRequest := ldap.NewSearchRequest(
		d.cfg.GroupBaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0,
		d.cfg.Timeout,
		false,
		filter,
		[]string{d.cfg.GroupNameAttr},
		nil,
	)

	result, err := conn.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to search for groups: %w", problem.ErrServiceUnavailable, err)
	}

	names := make([]string, 0, len(result.Entries))
	for _, entry := range result.Entries {
		if name := entry.GetAttributeValue(d.cfg.GroupNameAttr); name != "" {
			names = append(names, name)
		}
	}

	return names, nil
}

func (d *LDAP) modifyPassword(conn Conn, userDN, oldPassword, newPassword string) error {
	_, err := conn.PasswordModify(ldap.NewPasswordModifyRequest(userDN, oldPassword, newPassword))
	if err == nil {
		return nil
	}

	if ldap.IsErrorWithCode(err, ldap.LDAPResultConstraintViolation) {
		return fmt.Errorf("%w: %w", problem.ErrExistingPassword, err)
	}

	return fmt.Errorf("%w: failed to modify password: %w", problem.ErrServiceUnavailable, err)
}

// mirrorUser creates or updates the local copy of an LDAP user.
func (d *LDAP) mirrorUser(
	ctx context.Context,
	repos *repository.Repositories,
	username string,
	entry *ldap.Entry,
) (*models.User, error) {
	user, err := repos.Users.FindByUsername(ctx, d.id, username)
	if errors.Is(err, problem.ErrUserNotFound) {
		user = &models.User{UserDirectoryID: d.id, Username: username, Status: models.UserStatusActive}
		err = nil
	}

	if err != nil {
		return nil, err
	}

	firstName := entry.GetAttributeValue(d.cfg.FirstNameAttr)
	lastName := entry.GetAttributeValue(d.cfg.LastNameAttr)

	user.Name = strings.TrimSpace(firstName + " " + lastName)
	if user.Name == "" {
		user.Name = entry.GetAttributeValue("cn")
	}

	if user.Name == "" {
		user.Name = username
	}

	user.PreferredName = firstName
	user.Email = entry.GetAttributeValue(d.cfg.EmailAttr)
	user.PhoneNumber = entry.GetAttributeValue(d.cfg.PhoneNumberAttr)
	user.MobileNumber = entry.GetAttributeValue(d.cfg.MobileNumberAttr)
	user.ExternalReference = entry.DN

	if user.ID == uuid.Nil {
		err = repos.Users.Create(ctx, user)
	} else {
		err = repos.Users.Save(ctx, user)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to mirror LDAP user %s: %w", username, err)
	}

	return user, nil
}

// syncGroups replaces the memberships of the user with the given group names, creating missing groups.
func (d *LDAP) syncGroups(ctx context.Context, repos *repository.Repositories, user *models.User, names []string) error {
	if d.cfg.GroupBaseDN == "" {
		return nil
	}

	if err := repos.Groups.RemoveMemberships(ctx, d.id, user.ID); err != nil {
		return err
	}

	seen := make(map[string]bool, len(names))

	for _, name := range names {
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}

		seen[key] = true

		group, err := repos.Groups.FindByName(ctx, d.id, name)
		if errors.Is(err, problem.ErrGroupNotFound) {
			group = &models.Group{UserDirectoryID: d.id, Name: name, Description: "LDAP group " + name}
			err = repos.Groups.Create(ctx, group)
		}

		if err != nil {
			return fmt.Errorf("failed to sync LDAP group %s: %w", name, err)
		}

		if err = repos.Groups.AddMember(ctx, group.ID, user.ID); err != nil {
			return err
		}
	}

	return nil
}
