package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"backend-stizi/internal/apiclient"
	"backend-stizi/internal/collect"
	"backend-stizi/internal/logging"
	"backend-stizi/internal/shared/geo"

	"github.com/spf13/viper"
)

const usage = `usage: stizi <command> [flags]

commands:
  send-otp -phone N           request a login code
  verify   -phone N -otp C    exchange a code for a token
  nearby   -lat L -lng L      list stamps around a position
  check    -lat L -lng L -code Q
  collect  -lat L -lng L -code Q
  mine                        list collected stamps
  create   -name N -desc D -lat L -lng L

env: STIZI_API_URL, STIZI_TOKEN, STIZI_LOG_LEVEL
`

type cliConfig struct {
	APIURL   string `mapstructure:"STIZI_API_URL"`
	Token    string `mapstructure:"STIZI_TOKEN"`
	LogLevel string `mapstructure:"STIZI_LOG_LEVEL"`
}

func loadConfig() cliConfig {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("STIZI_API_URL", "http://localhost:8080")
	v.SetDefault("STIZI_TOKEN", "")
	v.SetDefault("STIZI_LOG_LEVEL", "warn")

	var cfg cliConfig
	_ = v.Unmarshal(&cfg)
	return cfg
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, loadConfig(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, cfg cliConfig, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	log := logging.NewWithWriter(stderr, cfg.LogLevel)
	tokens := apiclient.NewMemoryTokenStore(cfg.Token)
	client := apiclient.New(cfg.APIURL, tokens, apiclient.WithLogger(log))
	c := &cli{client: client, stdout: stdout}

	var err error
	switch args[0] {
	case "send-otp":
		err = c.sendOTP(ctx, args[1:])
	case "verify":
		err = c.verify(ctx, args[1:])
	case "nearby":
		err = c.nearby(ctx, args[1:])
	case "check":
		err = c.check(ctx, args[1:])
	case "collect":
		err = c.collect(ctx, args[1:])
	case "mine":
		err = c.mine(ctx, args[1:])
	case "create":
		err = c.create(ctx, args[1:])
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		fmt.Fprintln(stderr, "error:", message(err))
		return 1
	}
	return 0
}

type cli struct {
	client *apiclient.Client
	stdout io.Writer
}

func message(err error) string {
	var re *collect.RemoteError
	if errors.As(err, &re) {
		return collect.ReasonFor(err)
	}
	return err.Error()
}

type position struct {
	lat, lng float64
}

func (p *position) bind(fs *flag.FlagSet) {
	fs.Float64Var(&p.lat, "lat", 0, "latitude")
	fs.Float64Var(&p.lng, "lng", 0, "longitude")
}

func (p position) coordinate() (geo.Coordinate, error) {
	c := geo.Coordinate{Lat: p.lat, Lng: p.lng}
	if !c.Valid() {
		return geo.Coordinate{}, errors.New("lat/lng out of range")
	}
	return c, nil
}

func (c *cli) sendOTP(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("send-otp", flag.ContinueOnError)
	phone := fs.String("phone", "", "phone number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *phone == "" {
		return errors.New("-phone required")
	}
	if err := c.client.SendOTP(ctx, *phone); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "code sent to", *phone)
	return nil
}

func (c *cli) verify(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	phone := fs.String("phone", "", "phone number")
	otp := fs.String("otp", "", "one-time code")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *phone == "" || *otp == "" {
		return errors.New("-phone and -otp required")
	}
	resp, err := c.client.VerifyOTP(ctx, *phone, *otp)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "signed in as %s\nexport STIZI_TOKEN=%s\n", resp.User.ID, resp.Token)
	return nil
}

// session signs in with the configured token and binds the CLI position.
func (c *cli) session(ctx context.Context, loc collect.LocationProvider) (*collect.Session, error) {
	me, err := c.client.Me(ctx)
	if err != nil {
		return nil, err
	}
	store := collect.NewStore(me.ID)
	store.ReplaceMine(me.Stamps)
	s := collect.NewSession(c.client, store, loc, collect.WithLogger(logging.Discard()))
	s.OnUnauthenticated = func(error) {
		fmt.Fprintln(c.stdout, "session expired, sign in again")
	}
	return s, nil
}

func (c *cli) nearby(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("nearby", flag.ContinueOnError)
	var pos position
	pos.bind(fs)
	radius := fs.Float64("radius", apiclient.DefaultRadiusM, "search radius in meters")
	if err := fs.Parse(args); err != nil {
		return err
	}
	here, err := pos.coordinate()
	if err != nil {
		return err
	}
	stamps, err := c.client.Nearby(ctx, here.Lat, here.Lng, *radius)
	if err != nil {
		return err
	}
	for _, st := range stamps {
		d := collect.Evaluate(&here, st.Coordinate())
		dist, _ := d.MeasuredDistance()
		fmt.Fprintf(c.stdout, "%-36s %-24s %8.0fm %s\n", st.ID, st.Name, dist, d.Outcome())
	}
	if len(stamps) == 0 {
		fmt.Fprintln(c.stdout, "no stamps nearby")
	}
	return nil
}

func (c *cli) findStamp(ctx context.Context, s *collect.Session, code string) (collect.Stamp, error) {
	stamps, err := s.RefreshNearby(ctx, apiclient.DefaultRadiusM)
	if err != nil {
		return collect.Stamp{}, err
	}
	for _, st := range stamps {
		if st.QRCode == code || st.ID == code {
			return st, nil
		}
	}
	return collect.Stamp{}, fmt.Errorf("no stamp with code %q within %.0fm", code, apiclient.DefaultRadiusM)
}

func (c *cli) target(ctx context.Context, name string, args []string) (*collect.Session, collect.Stamp, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	var pos position
	pos.bind(fs)
	code := fs.String("code", "", "stamp QR code")
	if err := fs.Parse(args); err != nil {
		return nil, collect.Stamp{}, err
	}
	if strings.TrimSpace(*code) == "" {
		return nil, collect.Stamp{}, errors.New("-code required")
	}
	here, err := pos.coordinate()
	if err != nil {
		return nil, collect.Stamp{}, err
	}
	s, err := c.session(ctx, collect.NewStaticLocation(here))
	if err != nil {
		return nil, collect.Stamp{}, err
	}
	st, err := c.findStamp(ctx, s, strings.TrimSpace(*code))
	if err != nil {
		return nil, collect.Stamp{}, err
	}
	return s, st, nil
}

func (c *cli) check(ctx context.Context, args []string) error {
	s, st, err := c.target(ctx, "check", args)
	if err != nil {
		return err
	}
	d := s.Check(ctx, st)
	fmt.Fprintf(c.stdout, "%s: %s\n", st.Name, d.Outcome())
	if msg := d.Message(); msg != "" {
		fmt.Fprintln(c.stdout, msg)
	}
	return nil
}

func (c *cli) collect(ctx context.Context, args []string) error {
	s, st, err := c.target(ctx, "collect", args)
	if err != nil {
		return err
	}
	got, d, err := s.Collect(ctx, st)
	if errors.Is(err, collect.ErrAlreadyCollectedLocally) {
		fmt.Fprintf(c.stdout, "%s is already in your collection\n", st.Name)
		return nil
	}
	if err != nil {
		if d.Outcome() != collect.Eligible {
			return errors.New(d.Message())
		}
		return err
	}
	fmt.Fprintf(c.stdout, "collected %s (%d stamps total)\n", got.Name, len(s.Store().Mine()))
	return nil
}

func (c *cli) mine(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("mine", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := c.session(ctx, nil)
	if err != nil {
		return err
	}
	stamps, err := s.RefreshMine(ctx)
	if err != nil {
		return err
	}
	for _, st := range stamps {
		fmt.Fprintf(c.stdout, "%-36s %s\n", st.ID, st.Name)
	}
	fmt.Fprintf(c.stdout, "%d stamps collected\n", len(stamps))
	return nil
}

func (c *cli) create(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	var pos position
	pos.bind(fs)
	name := fs.String("name", "", "stamp name")
	desc := fs.String("desc", "", "stamp description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*name) == "" {
		return errors.New("-name required")
	}
	here, err := pos.coordinate()
	if err != nil {
		return err
	}
	s, err := c.session(ctx, collect.NewStaticLocation(here))
	if err != nil {
		return err
	}
	st, err := s.CreateStamp(ctx, collect.NewStamp{Name: *name, Description: *desc, Location: here})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "created %s %s\nqr code: %s\n", st.ID, st.Name, st.QRCode)
	return nil
}
