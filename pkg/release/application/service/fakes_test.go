package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/pkg/errors"
	applogger "github.com/tss-calculator/go-lib/pkg/application/logger"

	"github.com/tss-calculator/release-tools/pkg/release/application/model"
)

const headHash = "4f2a9c1"

func testSettings() model.Settings {
	return model.Settings{
		APIURL:              "https://gitlab.example.com/api/v4",
		Token:               "secret",
		VerifyTLS:           true,
		DefaultBranch:       "main",
		TagPrefix:           "v",
		Remote:              "origin",
		UpdateDefaultBranch: true,
		DeployBasePath:      "/opt/tools",
	}
}

type testLogger struct {
	messages []string
	warnings []string
}

func (l *testLogger) WithField(string, interface{}) applogger.Logger { return l }

func (l *testLogger) WithFields(applogger.Fields) applogger.Logger { return l }

func (l *testLogger) Debug(args ...interface{}) { l.messages = append(l.messages, fmt.Sprint(args...)) }

func (l *testLogger) Info(args ...interface{}) { l.messages = append(l.messages, fmt.Sprint(args...)) }

func (l *testLogger) Warning(err error, args ...interface{}) {
	l.warnings = append(l.warnings, fmt.Sprintf("%v: %v", fmt.Sprint(args...), err))
}

func (l *testLogger) Error(err error, args ...interface{}) {
	l.messages = append(l.messages, fmt.Sprintf("%v: %v", fmt.Sprint(args...), err))
}

// fakeRepository keeps local and remote refs in memory. Remote branches are
// mirrored as refs/remotes/<remote>/<branch> like after a fetch.
type fakeRepository struct {
	notRepository bool
	dirty         bool
	branch        string
	refs          map[string]string
	tags          []string
	logs          map[string][]Commit
	ahead         map[string]int
	remoteURL     string
	failures      map[string]error

	remoteTags  map[string]bool
	tagMessages map[string]string
	calls       []string
	fs          billy.Filesystem
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		branch: "main",
		refs: map[string]string{
			"HEAD":                     headHash,
			"refs/heads/main":          headHash,
			"refs/remotes/origin/main": headHash,
		},
		logs:        map[string][]Commit{},
		ahead:       map[string]int{},
		remoteURL:   "git@gitlab.example.com:group/calc.git",
		failures:    map[string]error{},
		remoteTags:  map[string]bool{},
		tagMessages: map[string]string{},
	}
}

func (r *fakeRepository) withTags(tags ...string) *fakeRepository {
	for _, tag := range tags {
		r.tags = append(r.tags, tag)
		r.refs["refs/tags/"+tag] = headHash
		r.remoteTags[tag] = true
	}
	return r
}

func (r *fakeRepository) call(name string, args ...string) error {
	r.calls = append(r.calls, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	return r.failures[name]
}

func (r *fakeRepository) called(name string) bool {
	for _, c := range r.calls {
		if c == name || strings.HasPrefix(c, name+" ") {
			return true
		}
	}
	return false
}

func (r *fakeRepository) IsRepository(context.Context) (bool, error) {
	return !r.notRepository, r.call("IsRepository")
}

func (r *fakeRepository) CurrentBranch(context.Context) (string, error) {
	return r.branch, r.call("CurrentBranch")
}

func (r *fakeRepository) IsClean(context.Context) (bool, error) {
	return !r.dirty, r.call("IsClean")
}

func (r *fakeRepository) Fetch(_ context.Context, remote string) error {
	return r.call("Fetch", remote)
}

func (r *fakeRepository) RevParse(_ context.Context, rev string) (string, error) {
	if err := r.call("RevParse", rev); err != nil {
		return "", err
	}
	hash, ok := r.refs[rev]
	if !ok {
		return "", errors.Wrapf(model.ErrNotFound, "revision %v", rev)
	}
	return hash, nil
}

func (r *fakeRepository) RefExists(_ context.Context, ref string) (bool, error) {
	if err := r.call("RefExists", ref); err != nil {
		return false, err
	}
	_, ok := r.refs[ref]
	return ok, nil
}

func (r *fakeRepository) ListTags(_ context.Context, pattern string) ([]string, error) {
	if err := r.call("ListTags", pattern); err != nil {
		return nil, err
	}
	prefix := strings.TrimSuffix(pattern, "*")
	var tags []string
	for _, tag := range r.tags {
		if strings.HasPrefix(tag, prefix) {
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return tags, nil
}

func (r *fakeRepository) Log(_ context.Context, revRange string) ([]Commit, error) {
	return r.logs[revRange], r.call("Log", revRange)
}

func (r *fakeRepository) CountCommits(_ context.Context, revRange string) (int, error) {
	return r.ahead[revRange], r.call("CountCommits", revRange)
}

func (r *fakeRepository) CreateBranch(_ context.Context, branch string) error {
	if err := r.call("CreateBranch", branch); err != nil {
		return err
	}
	r.refs["refs/heads/"+branch] = r.refs["HEAD"]
	r.branch = branch
	return nil
}

func (r *fakeRepository) Checkout(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.call("Checkout", ref); err != nil {
		return err
	}
	r.branch = ref
	return nil
}

func (r *fakeRepository) CreateAnnotatedTag(_ context.Context, tag, message string) error {
	if err := r.call("CreateAnnotatedTag", tag); err != nil {
		return err
	}
	r.refs["refs/tags/"+tag] = r.refs["HEAD"]
	r.tagMessages[tag] = message
	return nil
}

func (r *fakeRepository) Push(_ context.Context, remote, ref string) error {
	if err := r.call("Push", remote, ref); err != nil {
		return err
	}
	switch {
	case strings.HasPrefix(ref, "refs/heads/"):
		r.refs["refs/remotes/"+remote+"/"+strings.TrimPrefix(ref, "refs/heads/")] = r.refs[ref]
	case strings.HasPrefix(ref, "refs/tags/"):
		r.remoteTags[strings.TrimPrefix(ref, "refs/tags/")] = true
	}
	return nil
}

func (r *fakeRepository) DeleteRemoteRef(ctx context.Context, remote, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.call("DeleteRemoteRef", remote, ref); err != nil {
		return err
	}
	switch {
	case strings.HasPrefix(ref, "refs/heads/"):
		delete(r.refs, "refs/remotes/"+remote+"/"+strings.TrimPrefix(ref, "refs/heads/"))
	case strings.HasPrefix(ref, "refs/tags/"):
		delete(r.remoteTags, strings.TrimPrefix(ref, "refs/tags/"))
	}
	return nil
}

func (r *fakeRepository) DeleteTag(ctx context.Context, tag string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.call("DeleteTag", tag); err != nil {
		return err
	}
	delete(r.refs, "refs/tags/"+tag)
	return nil
}

func (r *fakeRepository) DeleteBranch(ctx context.Context, branch string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.call("DeleteBranch", branch); err != nil {
		return err
	}
	delete(r.refs, "refs/heads/"+branch)
	return nil
}

func (r *fakeRepository) RemoteURL(_ context.Context, remote string) (string, error) {
	return r.remoteURL, r.call("RemoteURL", remote)
}

func (r *fakeRepository) ShallowClone(_ context.Context, url, ref, dir string) error {
	if err := r.call("ShallowClone", url, ref, dir); err != nil {
		return err
	}
	if r.fs != nil {
		return r.fs.MkdirAll(dir, 0o755)
	}
	return nil
}

type fakeHosting struct {
	projectID     model.ProjectRef
	webURL        string
	failures      map[string]error
	defaultBranch string
	mergeRequests []MergeRequest
	calls         []string

	onSetDefaultBranch func()
}

func newFakeHosting() *fakeHosting {
	return &fakeHosting{
		projectID: 12345,
		webURL:    "https://gitlab.example.com/group/calc/-/merge_requests/1",
		failures:  map[string]error{},
	}
}

func (h *fakeHosting) ResolveProjectID(_ context.Context, remoteURL string) (model.ProjectRef, error) {
	h.calls = append(h.calls, "ResolveProjectID "+remoteURL)
	if err := h.failures["ResolveProjectID"]; err != nil {
		return 0, err
	}
	return h.projectID, nil
}

func (h *fakeHosting) SetDefaultBranch(_ context.Context, projectID model.ProjectRef, branch string) error {
	h.calls = append(h.calls, fmt.Sprintf("SetDefaultBranch %d %v", projectID, branch))
	if h.onSetDefaultBranch != nil {
		h.onSetDefaultBranch()
	}
	if err := h.failures["SetDefaultBranch"]; err != nil {
		return err
	}
	h.defaultBranch = branch
	return nil
}

func (h *fakeHosting) OpenMergeRequest(_ context.Context, projectID model.ProjectRef, request MergeRequest) (string, error) {
	h.calls = append(h.calls, fmt.Sprintf("OpenMergeRequest %d %v", projectID, request.SourceBranch))
	if err := h.failures["OpenMergeRequest"]; err != nil {
		return "", err
	}
	h.mergeRequests = append(h.mergeRequests, request)
	return h.webURL, nil
}

var errNoMoreAnswers = errors.New("no more answers")

// fakePrompter answers from queues and remembers every question and option list.
type fakePrompter struct {
	confirms  []bool
	selects   []int
	inputs    []string
	questions []string
	options   [][]string
}

func (p *fakePrompter) Confirm(question string) (bool, error) {
	p.questions = append(p.questions, question)
	if len(p.confirms) == 0 {
		return false, errNoMoreAnswers
	}
	answer := p.confirms[0]
	p.confirms = p.confirms[1:]
	return answer, nil
}

func (p *fakePrompter) Select(question string, options []string) (int, error) {
	p.questions = append(p.questions, question)
	p.options = append(p.options, options)
	if len(p.selects) == 0 {
		return 0, errNoMoreAnswers
	}
	answer := p.selects[0]
	p.selects = p.selects[1:]
	return answer, nil
}

func (p *fakePrompter) Input(question string) (string, error) {
	p.questions = append(p.questions, question)
	if len(p.inputs) == 0 {
		return "", errNoMoreAnswers
	}
	answer := p.inputs[0]
	p.inputs = p.inputs[1:]
	return answer, nil
}

type fakeReporter struct {
	summaries []model.Summary
}

func (r *fakeReporter) Report(summary model.Summary) error {
	r.summaries = append(r.summaries, summary)
	return nil
}
