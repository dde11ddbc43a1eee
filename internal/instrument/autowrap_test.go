package instrument

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppbear/brinfo/internal/cparse"
)

const gtestSample = `
class ClampTest : public ::testing::Test {
public:
    void RunProbe() {
        Helper(Inner(1, 2), Other());
    }
};

int plain(int x) {
    return Helper(x);
}
`

func parseFirst(t *testing.T, name string, content string) *cparse.FunctionInfo {
	t.Helper()
	p := cparse.NewParser()
	result, err := p.Parse(context.Background(), []byte(content), "sample.cc")
	require.NoError(t, err)
	for i := range result.Functions {
		if result.Functions[i].Name == name {
			return &result.Functions[i]
		}
	}
	t.Fatalf("function %q not found", name)
	return nil
}

func TestBuildInvocationEditsWrapsOnlyTopLevelCallsInTestBodies(t *testing.T) {
	fi := parseFirst(t, "RunProbe", gtestSample)
	require.True(t, fi.IsTestBody)

	edits := buildInvocationEdits(fi, []byte(gtestSample))
	require.Len(t, edits, 1, "only the outer Helper(...) call is top-level")

	assert.Contains(t, edits[0].Replacement, "BRINFO_CALL(Helper(")
	assert.Contains(t, edits[0].Replacement, "BRINFO_CALL(Inner(1, 2))")
	assert.Contains(t, edits[0].Replacement, "BRINFO_CALL(Other())")
}

func TestBuildInvocationEditsSkipsNonTestBodies(t *testing.T) {
	fi := parseFirst(t, "plain", gtestSample)
	require.False(t, fi.IsTestBody)

	edits := buildInvocationEdits(fi, []byte(gtestSample))
	assert.Empty(t, edits)
}

func TestIsAlreadyWrappedDetectsPriorWrap(t *testing.T) {
	content := []byte(`BRINFO_CALL(Helper(x))`)
	assert.True(t, isAlreadyWrapped(content, uint32(len("BRINFO_CALL("))))
	assert.False(t, isAlreadyWrapped([]byte("Helper(x)"), 0))
}
