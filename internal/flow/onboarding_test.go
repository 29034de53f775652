package flow

import (
	"context"
	"strings"
	"testing"

	"github.com/BTreeMap/LockIn/internal/models"
	"github.com/BTreeMap/LockIn/internal/scheduler"
)

func TestOnboardingFullFlow(t *testing.T) {
	jobs := &mockJobs{}
	c, st, _ := newTestCoach(t, WithScheduler(jobs))

	steps := []struct {
		in   string
		want models.OnboardingStep
	}{
		{"hi", models.OnboardingAwaitingName},
		{"hello", models.OnboardingAwaitingName},
		{"sam SMITH", models.OnboardingAwaitingGoal},
		{"lose 5kg by May", models.OnboardingAwaitingActions},
		{"calories\nprotein\nwalk", models.OnboardingAwaitingTimes},
		{"I wake up at 6:30am, sleep 11pm, eating window 12-8pm, danger times 3pm and 9pm", models.OnboardingAwaitingShame},
		{"2", models.OnboardingAwaitingConfirm},
	}
	for _, s := range steps {
		reply := send(t, c, s.in)
		if reply.Flow != models.FlowTypeOnboarding {
			t.Errorf("%q: expected onboarding flow, got %q", s.in, reply.Flow)
		}
		if got := getUser(t, st).OnboardingStep; got != s.want {
			t.Fatalf("after %q: expected step %q, got %q (reply %q)", s.in, s.want, got, reply.Body)
		}
	}

	u := getUser(t, st)
	if u.Name != "Sam" || u.ShameLevel != 2 || u.Schedule.Wake != "06:30" || u.Schedule.Sleep != "23:00" {
		t.Errorf("unexpected user after onboarding steps: %+v", u)
	}

	reply := send(t, c, "LOCKED")
	if !strings.HasPrefix(reply.Body, "LOCKED.") {
		t.Errorf("unexpected confirmation reply %q", reply.Body)
	}
	u = getUser(t, st)
	if !u.OnboardingComplete || u.OnboardingStep != models.OnboardingComplete {
		t.Fatalf("expected onboarding complete, got %+v", u)
	}

	contract, err := st.GetActiveContract(testUser)
	if err != nil || contract == nil {
		t.Fatalf("expected active contract, got %v %v", contract, err)
	}
	if contract.Goal != "lose 5kg by May" {
		t.Errorf("unexpected goal %q", contract.Goal)
	}
	wantPoints := []int{2, 2, 1}
	if len(contract.Actions) != len(wantPoints) {
		t.Fatalf("expected 3 actions, got %+v", contract.Actions)
	}
	for i, p := range wantPoints {
		if contract.Actions[i].Points != p {
			t.Errorf("action %d: expected %d points, got %d", i, p, contract.Actions[i].Points)
		}
	}
	if !contract.ExpiresAt.Equal(fixedNow.Add(models.ContractDuration)) {
		t.Errorf("unexpected expiry %v", contract.ExpiresAt)
	}
	if s, _ := c.state.GetSession(context.Background(), testUser, models.FlowTypeOnboarding); s != nil {
		t.Error("expected onboarding session to be discarded")
	}

	if jobs.calls != 1 || jobs.userID != testUser {
		t.Fatalf("expected one schedule registration, got %+v", jobs)
	}
	var got []string
	for _, j := range jobs.jobs {
		got = append(got, j.Kind+"@"+j.Clock)
	}
	want := []string{
		scheduler.KindMorning + "@06:30",
		scheduler.KindNightlyReminder + "@21:00",
		scheduler.KindRiskWindow + "@15:00",
		scheduler.KindRiskWindow + "@21:00",
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected jobs %v, got %v", want, got)
	}
}

func TestOnboardingConfirmRequiresExactLocked(t *testing.T) {
	c, st, _ := newTestCoach(t)
	for _, in := range []string{"hi", "Alex", "run a marathon", "run\nstretch", "wake 7am", "3"} {
		send(t, c, in)
	}
	if getUser(t, st).OnboardingStep != models.OnboardingAwaitingConfirm {
		t.Fatal("expected to reach the confirm step")
	}

	for _, in := range []string{"yes", "lock", "LOCKED!", "locked it", "change walk to run"} {
		reply := send(t, c, in)
		if got := getUser(t, st).OnboardingStep; got != models.OnboardingAwaitingConfirm {
			t.Errorf("%q moved step to %q", in, got)
		}
		if !strings.Contains(reply.Body, "run a marathon") {
			t.Errorf("%q: expected contract restated, got %q", in, reply.Body)
		}
		if contract, _ := st.GetActiveContract(testUser); contract != nil {
			t.Fatalf("%q created a contract", in)
		}
	}

	send(t, c, "  locked ")
	if contract, _ := st.GetActiveContract(testUser); contract == nil {
		t.Error("expected case-insensitive LOCKED to create the contract")
	}
}

func TestOnboardingDefaultActionsAndShame(t *testing.T) {
	c, st, _ := newTestCoach(t)
	for _, in := range []string{"hey", "Jo", "get lean", "default"} {
		send(t, c, in)
	}
	reply := send(t, c, "whenever")
	if !strings.Contains(reply.Body, "Couldn't read wake, sleep, eating window, danger times") {
		t.Errorf("expected defaulted schedule fields to be reported, got %q", reply.Body)
	}
	reply = send(t, c, "max")
	if !strings.Contains(reply.Body, "I'll take that as 1") {
		t.Errorf("expected default shame level notice, got %q", reply.Body)
	}
	if getUser(t, st).ShameLevel != 1 {
		t.Error("expected shame level 1")
	}
	send(t, c, "LOCKED")
	contract, _ := st.GetActiveContract(testUser)
	if contract == nil || contract.TotalPossible() != 10 || len(contract.Actions) != 8 {
		t.Fatalf("expected default 8-action template, got %+v", contract)
	}
}

func TestOnboardingConfirmWithLostDraftRewinds(t *testing.T) {
	c, st, _ := newTestCoach(t)
	for _, in := range []string{"hi", "Alex", "run a marathon", "run", "wake 7am", "3"} {
		send(t, c, in)
	}
	if err := c.state.ResetState(context.Background(), testUser, models.FlowTypeOnboarding); err != nil {
		t.Fatal(err)
	}
	send(t, c, "LOCKED")
	if got := getUser(t, st).OnboardingStep; got != models.OnboardingAwaitingGoal {
		t.Errorf("expected rewind to goal, got %q", got)
	}
	if contract, _ := st.GetActiveContract(testUser); contract != nil {
		t.Error("expected no contract without a draft")
	}
}
