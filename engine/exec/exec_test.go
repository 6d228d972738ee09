package exec_test

import (
	"context"
	"testing"

	"github.com/rpcpool/coldb/catalog"
	"github.com/rpcpool/coldb/engine/exec"
	"github.com/rpcpool/coldb/query"
	"github.com/rpcpool/coldb/session"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, e *exec.Executor, sess *session.Context, line string) exec.Result {
	t.Helper()
	op, st := query.Parse(line)
	require.True(t, st.Kind.IsOK(), "parse %q: %v", line, st)
	return e.Run(context.Background(), sess, op)
}

// TestBasicSelectFetchSum exercises scenario S1 from spec.md §8.
func TestBasicSelectFetchSum(t *testing.T) {
	cat := catalog.New()
	e := exec.New(cat)
	sess := session.New()

	lines := []string{
		`create(db,"x")`,
		`create(tbl,"t","x",2)`,
		`create(col,"a","x.t")`,
		`create(col,"b","x.t")`,
		`relational_insert(x.t,10,100)`,
		`relational_insert(x.t,20,200)`,
		`relational_insert(x.t,30,300)`,
		`p=select(x.t.a,15,30)`,
		`v=fetch(x.t.b,p)`,
		`s=sum(v)`,
	}
	for _, l := range lines {
		res := run(t, e, sess, l)
		require.True(t, res.Status.Kind.IsOK(), "line %q: %v", l, res.Status)
	}

	printRes := run(t, e, sess, `print(s)`)
	require.True(t, printRes.Status.Kind.IsOK())
	require.Equal(t, "200\n", printRes.Payload)
}

// TestPrintMultiColumn exercises scenario S6 from spec.md §8.
func TestPrintMultiColumn(t *testing.T) {
	cat := catalog.New()
	e := exec.New(cat)
	sess := session.New()

	setup := []string{
		`create(db,"x")`,
		`create(tbl,"t","x",2)`,
		`create(col,"a","x.t")`,
		`create(col,"b","x.t")`,
	}
	for _, l := range setup {
		res := run(t, e, sess, l)
		require.True(t, res.Status.Kind.IsOK())
	}
	for i := int32(0); i < 20; i++ {
		res := run(t, e, sess, fmtInsert(i, i*10))
		require.True(t, res.Status.Kind.IsOK())
	}

	for _, l := range []string{
		`p=select(x.t.a,0,10)`,
		`va=fetch(x.t.a,p)`,
		`vb=fetch(x.t.b,p)`,
	} {
		res := run(t, e, sess, l)
		require.True(t, res.Status.Kind.IsOK())
	}

	printRes := run(t, e, sess, `print(va,vb)`)
	require.True(t, printRes.Status.Kind.IsOK())
	require.Equal(t, 10, len(splitLines(printRes.Payload)))
}

func fmtInsert(a, b int32) string {
	return "relational_insert(x.t," + itoa(a) + "," + itoa(b) + ")"
}

func itoa(v int32) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [12]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	s := string(buf[i:])
	if neg {
		return "-" + s
	}
	return s
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}
