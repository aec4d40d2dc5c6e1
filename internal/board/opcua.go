package board

import (
	"context"
	"fmt"

	"codeberg.org/mutker/plasmactl/internal/errors"
	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"
)

// RemoteConfig captures the runtime details required to open an OPC UA
// session against the board host.
type RemoteConfig struct {
	Endpoint        string
	Namespace       int
	SecurityMode    string
	SecurityPolicy  string
	ApplicationName string
	Username        string
	Password        string
}

func (c *RemoteConfig) ApplyDefaults() {
	if c.SecurityMode == "" {
		c.SecurityMode = "None"
	}
	if c.SecurityPolicy == "" {
		c.SecurityPolicy = "None"
	}
	if c.ApplicationName == "" {
		c.ApplicationName = "plasmactl"
	}
	if c.Namespace <= 0 {
		c.Namespace = 2
	}
}

func (c *RemoteConfig) Validate() error {
	if c.Endpoint == "" {
		return errors.New().WithMessage(errors.ErrInvalidConfig, "board endpoint is required")
	}
	return nil
}

// Remote is a board backed by OPC-UA variable nodes. Each field maps to a
// string node id inside the configured namespace. Any session or transport
// error is fatal to the caller; the protocol has no non-fatal transport
// failures.
type Remote struct {
	cfg    RemoteConfig
	client *opcua.Client
}

// Connect dials the board host and opens a secure channel and session.
func Connect(ctx context.Context, cfg RemoteConfig) (*Remote, error) {
	errFactory := errors.New()

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []opcua.Option{
		opcua.SecurityModeString(cfg.SecurityMode),
		opcua.SecurityPolicy(cfg.SecurityPolicy),
		opcua.ApplicationName(cfg.ApplicationName),
		opcua.AutoReconnect(true),
	}
	if cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(cfg.Username, cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}

	client, err := opcua.NewClient(cfg.Endpoint, opts...)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrBoardUnavailable, err)
	}

	if err := client.Connect(ctx); err != nil {
		return nil, errFactory.Wrap(errors.ErrBoardUnavailable, err)
	}

	return &Remote{cfg: cfg, client: client}, nil
}

// Close tears down the session and secure channel.
func (r *Remote) Close(ctx context.Context) error {
	if err := r.client.Close(ctx); err != nil {
		return errors.New().Wrap(errors.ErrShutdownFailed, err)
	}
	return nil
}

func (r *Remote) nodeID(f Field) (*ua.NodeID, error) {
	id, err := ua.ParseNodeID(fmt.Sprintf("ns=%d;s=%s", r.cfg.Namespace, f))
	if err != nil {
		return nil, errors.New().Wrap(errors.ErrInternal, err)
	}
	return id, nil
}

func (r *Remote) read(ctx context.Context, f Field) (*ua.Variant, error) {
	errFactory := errors.New()

	id, err := r.nodeID(f)
	if err != nil {
		return nil, err
	}

	req := &ua.ReadRequest{
		MaxAge:             100,
		TimestampsToReturn: ua.TimestampsToReturnNeither,
		NodesToRead: []*ua.ReadValueID{
			{NodeID: id, AttributeID: ua.AttributeIDValue},
		},
	}

	resp, err := r.client.Read(ctx, req)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrBoardUnavailable, err)
	}
	if len(resp.Results) == 0 {
		return nil, errFactory.WithData(errors.ErrBoardUnavailable, f)
	}
	if resp.Results[0].Status != ua.StatusOK {
		return nil, errFactory.WithData(errors.ErrBoardUnavailable, resp.Results[0].Status)
	}

	return resp.Results[0].Value, nil
}

func (r *Remote) write(ctx context.Context, f Field, value any) error {
	errFactory := errors.New()

	id, err := r.nodeID(f)
	if err != nil {
		return err
	}

	v, err := ua.NewVariant(value)
	if err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	req := &ua.WriteRequest{
		NodesToWrite: []*ua.WriteValue{
			{
				NodeID:      id,
				AttributeID: ua.AttributeIDValue,
				Value: &ua.DataValue{
					EncodingMask: ua.DataValueValue,
					Value:        v,
				},
			},
		},
	}

	resp, err := r.client.Write(ctx, req)
	if err != nil {
		return errFactory.Wrap(errors.ErrBoardUnavailable, err)
	}
	if len(resp.Results) == 0 || resp.Results[0] != ua.StatusOK {
		return errFactory.WithData(errors.ErrBoardUnavailable, f)
	}

	return nil
}

func (r *Remote) ReadBool(ctx context.Context, f Field) (bool, error) {
	v, err := r.read(ctx, f)
	if err != nil {
		return false, err
	}

	b, ok := v.Value().(bool)
	if !ok {
		return false, errors.New().WithData(errors.ErrMalformedTick, f)
	}
	return b, nil
}

func (r *Remote) WriteBool(ctx context.Context, f Field, v bool) error {
	return r.write(ctx, f, v)
}

func (r *Remote) ReadString(ctx context.Context, f Field) (string, error) {
	v, err := r.read(ctx, f)
	if err != nil {
		return "", err
	}

	s, ok := v.Value().(string)
	if !ok {
		return "", errors.New().WithData(errors.ErrMalformedTick, f)
	}
	return s, nil
}

func (r *Remote) WriteString(ctx context.Context, f Field, v string) error {
	return r.write(ctx, f, v)
}

func (r *Remote) ReadFloat(ctx context.Context, f Field) (float64, error) {
	v, err := r.read(ctx, f)
	if err != nil {
		return 0, err
	}

	switch val := v.Value().(type) {
	case float32:
		return float64(val), nil
	case float64:
		return val, nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	default:
		return 0, errors.New().WithData(errors.ErrMalformedTick, f)
	}
}

func (r *Remote) WriteFloat(ctx context.Context, f Field, v float64) error {
	return r.write(ctx, f, v)
}

var _ Board = (*Remote)(nil)
