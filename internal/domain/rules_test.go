package domain_test

import (
	"math/rand/v2"
	"testing"

	"github.com/dom/mafia-server/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

func TestAssignRoles(t *testing.T) {
	counts := domain.DefaultSettings().Roles

	for seed := uint64(0); seed < 20; seed++ {
		members := ids(10)
		roles, err := domain.AssignRoles(members, counts, rand.New(rand.NewPCG(seed, seed+1)))
		require.NoError(t, err)
		require.Len(t, roles, 10)

		got := map[domain.Role]int{}
		for _, id := range members {
			role, ok := roles[id]
			require.True(t, ok, "member without role")
			got[role]++
		}
		want := map[domain.Role]int{
			domain.RoleMafia:     2,
			domain.RoleDetective: 1,
			domain.RoleDoctor:    1,
			domain.RoleVillager:  6,
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("role multiset mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestAssignRolesMismatch(t *testing.T) {
	_, err := domain.AssignRoles(ids(8), domain.DefaultSettings().Roles, rand.New(rand.NewPCG(1, 2)))
	assert.ErrorIs(t, err, domain.ErrRoleCountMismatch)
}

func TestAssignRolesIsShuffled(t *testing.T) {
	members := ids(10)
	rng := rand.New(rand.NewPCG(7, 7))
	everMafia := map[uuid.UUID]bool{}
	for i := 0; i < 50; i++ {
		roles, err := domain.AssignRoles(members, domain.DefaultSettings().Roles, rng)
		require.NoError(t, err)
		for id, r := range roles {
			if r == domain.RoleMafia {
				everMafia[id] = true
			}
		}
	}
	assert.Greater(t, len(everMafia), 2)
}

func TestTallyVotes(t *testing.T) {
	a, b, c, x, y := uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()

	tests := []struct {
		name   string
		votes  map[uuid.UUID]uuid.UUID
		want   uuid.UUID
		wantOK bool
	}{
		{"no votes", map[uuid.UUID]uuid.UUID{}, uuid.Nil, false},
		{"single vote", map[uuid.UUID]uuid.UUID{a: x}, x, true},
		{"one-one tie", map[uuid.UUID]uuid.UUID{a: x, b: y}, uuid.Nil, false},
		{"plurality", map[uuid.UUID]uuid.UUID{a: x, b: x, c: y}, x, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := domain.TallyVotes(tt.votes)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveNight(t *testing.T) {
	m1, m2, doc, det, v1, v2 := uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()
	roles := map[uuid.UUID]domain.Role{
		m1: domain.RoleMafia, m2: domain.RoleMafia,
		doc: domain.RoleDoctor, det: domain.RoleDetective,
		v1: domain.RoleVillager, v2: domain.RoleVillager,
	}

	t.Run("doctor saves the target", func(t *testing.T) {
		out := domain.ResolveNight(map[uuid.UUID]domain.Action{
			m1:  {Kind: domain.ActionEliminate, Target: v1},
			doc: {Kind: domain.ActionProtect, Target: v1},
		}, roles)
		assert.Equal(t, v1, out.Target)
		assert.False(t, out.Killed)
		assert.True(t, out.Saved)
	})

	t.Run("unprotected target dies", func(t *testing.T) {
		out := domain.ResolveNight(map[uuid.UUID]domain.Action{
			m1:  {Kind: domain.ActionEliminate, Target: v1},
			m2:  {Kind: domain.ActionEliminate, Target: v1},
			doc: {Kind: domain.ActionProtect, Target: v2},
		}, roles)
		assert.Equal(t, v1, out.Target)
		assert.True(t, out.Killed)
	})

	t.Run("split mafia kills nobody", func(t *testing.T) {
		out := domain.ResolveNight(map[uuid.UUID]domain.Action{
			m1: {Kind: domain.ActionEliminate, Target: v1},
			m2: {Kind: domain.ActionEliminate, Target: v2},
		}, roles)
		assert.Equal(t, uuid.Nil, out.Target)
		assert.False(t, out.Killed)
	})

	t.Run("doctor may protect self", func(t *testing.T) {
		out := domain.ResolveNight(map[uuid.UUID]domain.Action{
			m1:  {Kind: domain.ActionEliminate, Target: doc},
			doc: {Kind: domain.ActionProtect, Target: doc},
		}, roles)
		assert.True(t, out.Saved)
	})

	t.Run("detective learns role", func(t *testing.T) {
		out := domain.ResolveNight(map[uuid.UUID]domain.Action{
			det: {Kind: domain.ActionInvestigate, Target: m2},
		}, roles)
		require.Len(t, out.Investigations, 1)
		assert.Equal(t, domain.Investigation{Detective: det, Target: m2, Role: domain.RoleMafia}, out.Investigations[0])
		assert.False(t, out.Killed)
	})

	t.Run("actions from the wrong role are ignored", func(t *testing.T) {
		out := domain.ResolveNight(map[uuid.UUID]domain.Action{
			v1: {Kind: domain.ActionEliminate, Target: v2},
		}, roles)
		assert.False(t, out.Killed)
	})
}

func TestCheckWinner(t *testing.T) {
	M, V, D := domain.RoleMafia, domain.RoleVillager, domain.RoleDoctor

	tests := []struct {
		name   string
		alive  []domain.Role
		want   domain.Winner
		wantOK bool
	}{
		{"no mafia left", []domain.Role{V, V, D}, domain.WinnerVillagers, true},
		{"mafia parity", []domain.Role{M, V}, domain.WinnerMafia, true},
		{"mafia majority", []domain.Role{M, M, V}, domain.WinnerMafia, true},
		{"game continues", []domain.Role{M, V, V, D}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := domain.CheckWinner(tt.alive)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
