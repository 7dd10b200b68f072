package policy

import (
	"github.com/ValentinKolb/dRPC/rpc/ack"
	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/ValentinKolb/dRPC/rpc/host"
	"github.com/stretchr/testify/assert"
	"testing"
)

type fakeConn struct {
	h      host.Host
	closed int
}

func (c *fakeConn) Host() host.Host { return c.h }
func (c *fakeConn) Close() error {
	c.closed++
	return nil
}

func TestThresholdPolicy(t *testing.T) {
	conn := &fakeConn{h: host.New("10.0.0.2", 9000, "")}
	f := ack.NewFuture(common.NewRequest("svc", "m", nil), host.Host{}, conn.h, 0, nil)

	p := NewThresholdPolicy(2)
	defer p.Stop()

	p.Timeout(conn, f, 1)
	assert.Equal(t, 0, conn.closed)

	p.Timeout(conn, f, 2)
	assert.Equal(t, 1, conn.closed)
	assert.Equal(t, int64(2), p.Timeouts(conn.h))
	assert.Equal(t, int64(0), p.Timeouts(host.New("10.0.0.3", 9000, "")))
}

func TestThresholdPolicyDisabled(t *testing.T) {
	conn := &fakeConn{h: host.New("10.0.0.2", 9000, "")}
	f := ack.NewFuture(common.NewRequest("svc", "m", nil), host.Host{}, conn.h, 0, nil)

	p := NewThresholdPolicy(0)
	defer p.Stop()
	for i := 1; i < 10; i++ {
		p.Timeout(conn, f, i)
	}
	assert.Equal(t, 0, conn.closed)
	assert.Equal(t, int64(9), p.Timeouts(conn.h))
}

func TestStaticToken(t *testing.T) {
	a := &fakeConn{h: host.New("10.0.0.2", 9000, "")}
	b := &fakeConn{h: host.New("10.0.0.3", 9000, "")}
	req := common.NewRequest("svc", "m", nil)

	tokens := StaticToken{Token: "default", PerHost: map[host.Host]string{b.h: "special"}}

	assert.Equal(t, "default", tokens.Set(req, a).Headers[TokenHeader])
	assert.Equal(t, "special", tokens.Set(req, b).Headers[TokenHeader])
	assert.Nil(t, req.Headers)

	assert.Same(t, req, StaticToken{}.Set(req, a))
	assert.Same(t, req, NoToken{}.Set(req, a))
}
