package rules

import (
	"reflect"
	"strings"
	"testing"

	"gasguard/internal/soroban"
	"gasguard/internal/violation"
)

func mustParse(t *testing.T, src string) *soroban.Contract {
	t.Helper()
	c, err := soroban.Parse(src, "test.rs")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return c
}

func TestUnusedFieldGetterSetter(t *testing.T) {
	src := `#[contracttype]
pub struct State {
    used: u32,
    unused: u32,
    also_used: u32,
}

#[contractimpl]
impl State {
    pub fn get_used(&self) -> u32 {
        self.used
    }

    pub fn set_also_used(&mut self, value: u32) {
        self.also_used = value;
    }
}
`
	vs := NewUnusedStateVariables().Apply(mustParse(t, src))
	if len(vs) != 1 {
		t.Fatalf("expected exactly one violation, got %+v", vs)
	}
	if vs[0].Variable != "unused" || vs[0].Line != 4 {
		t.Fatalf("got %+v", vs[0])
	}
}

func TestUnusedFieldThreeOfFive(t *testing.T) {
	src := `#[contracttype]
pub struct Config {
    alpha: u32,
    beta: u32,
    gamma: u32,
    delta: u32,
    epsilon: u32,
}

#[contractimpl]
impl Config {
    pub fn new(delta: u32) -> Self {
        Self { alpha: 0, beta: 0, gamma: 0, delta, epsilon: 0 }
    }

    pub fn beta(&self) -> u32 {
        // self.gamma is only mentioned in this comment
        self.beta
    }
}
`
	vs := NewUnusedStateVariables().Apply(mustParse(t, src))
	want := []string{"alpha", "epsilon", "gamma"}
	if got := variables(vs); !reflect.DeepEqual(got, want) {
		t.Fatalf("unused set: got %v, want %v", got, want)
	}
}

func TestUnusedFieldAllReferenced(t *testing.T) {
	src := `#[contracttype]
pub struct Wallet {
    owner: Address,
    balance: i64,
}

#[contractimpl]
impl Wallet {
    pub fn balance(&self) -> i64 {
        self.balance
    }

    pub fn set_owner(&mut self, next: Address) {
        self . owner = next;
    }
}
`
	if vs := NewUnusedStateVariables().Apply(mustParse(t, src)); len(vs) != 0 {
		t.Fatalf("expected no violations, got %+v", vs)
	}
}

func TestInefficientIntegers(t *testing.T) {
	src := `#[contracttype]
pub struct Pool {
    pub reserve: u128,
    pub fee: u32,
    pub shares: Map<Address, I256>,
}

#[contractimpl]
impl Pool {
    pub fn swap(&mut self, amount_in: i128, min_out: u64) -> i128 {
        amount_in
    }
}
`
	vs := NewInefficientIntegers().Apply(mustParse(t, src))
	type pos struct {
		name      string
		line, col uint32
	}
	want := []pos{{"reserve", 3, 9}, {"shares", 5, 9}, {"amount_in", 10, 28}}
	if len(vs) != len(want) {
		t.Fatalf("got %+v", vs)
	}
	for i, w := range want {
		if vs[i].Variable != w.name || vs[i].Line != w.line || vs[i].Column != w.col {
			t.Fatalf("violation %d: got %s %d:%d, want %+v", i, vs[i].Variable, vs[i].Line, vs[i].Column, w)
		}
	}
}

func TestStringOverSymbol(t *testing.T) {
	src := `#[contracttype]
pub struct Profile {
    pub name: String,
    pub tag: Symbol,
    pub bio: soroban_sdk::String,
}
`
	vs := NewStringOverSymbol().Apply(mustParse(t, src))
	if got := variables(vs); !reflect.DeepEqual(got, []string{"bio", "name"}) {
		t.Fatalf("got %v", got)
	}
	if vs[0].Severity != violation.SevInfo {
		t.Fatalf("default severity: %s", vs[0].Severity)
	}
}

func TestRepeatedStorageAccess(t *testing.T) {
	src := `#[contracttype]
pub struct Vault {
    pub balances: Map<Address, i128>,
}

#[contractimpl]
impl Vault {
    pub fn twice(env: Env, id: Address) -> i128 {
        let a: i128 = env.storage().persistent().get(&DataKey::Balance(id.clone())).unwrap_or(0);
        let b: i128 = env.storage().persistent().get(&DataKey::Balance(id.clone())).unwrap_or(0);
        a + b
    }

    pub fn unbound(env: Env) -> u32 {
        if env.storage().instance().get::<_, u32>(&DataKey::Count).is_some() {
            return env.storage().instance().get::<_, u32>(&DataKey::Count).unwrap();
        }
        0
    }
    pub fn fields(&self, id: Address) -> i128 {
        self.balances.get(id.clone()).unwrap_or(0) + self.balances.get(id.clone()).unwrap_or(0)
    }

    pub fn distinct(env: Env) {
        env.storage().persistent().get::<_, u32>(&DataKey::A);
        env.storage().persistent().get::<_, u32>(&DataKey::B);
    }

    pub fn summed(env: Env) -> u32 {
        let p = env.storage().persistent().get(&OTHER).unwrap() + env.storage().persistent().get(&OTHER).unwrap();
        let k: u32 = env.storage().persistent().get(&KEY).unwrap();
        let again: u32 = env.storage().persistent().get(&KEY).unwrap();
        p + k + again
    }
}
`
	vs := NewRepeatedStorageAccess().Apply(mustParse(t, src))
	if len(vs) != 3 {
		t.Fatalf("expected 3 violations, got %+v", vs)
	}
	if vs[2].Line != 30 || vs[2].Column != 67 || vs[2].Variable != "&OTHER" {
		t.Fatalf("read repeated inside one let initializer: %+v", vs[2])
	}
	if vs[0].Line != 16 || vs[0].Column != 20 || vs[0].Variable != "&DataKey::Count" {
		t.Fatalf("instance read: %+v", vs[0])
	}
	if vs[1].Line != 21 || vs[1].Variable != "balances" {
		t.Fatalf("field read: %+v", vs[1])
	}
}

func TestUnboundedLoop(t *testing.T) {
	src := `#[contracttype]
pub struct Registry {
    pub count: u32,
}

#[contractimpl]
impl Registry {
    pub fn sum(env: Env, values: Vec<u64>) -> u64 {
        let mut total = 0;
        for v in values.iter() {
            total += v;
        }
        total
    }

    pub fn capped(env: Env, values: Vec<u64>) -> u64 {
        if values.len() > 100 {
            panic!("too many");
        }
        let mut total = 0;
        for v in values.iter() {
            total += v;
        }
        total
    }

    pub fn fixed(env: Env, values: [u64; 4]) -> u64 {
        let mut total = 0;
        for v in values.iter() {
            total += v;
        }
        total
    }

    pub fn slices(&self, ids: &[u32]) {
        ids.iter().for_each(|_| {});
    }
}
`
	vs := NewUnboundedLoop().Apply(mustParse(t, src))
	if len(vs) != 2 {
		t.Fatalf("expected 2 violations, got %+v", vs)
	}
	if vs[0].Line != 10 || vs[0].Column != 9 || vs[0].Variable != "values" {
		t.Fatalf("for loop: %+v", vs[0])
	}
	if vs[1].Line != 36 || vs[1].Variable != "ids" {
		t.Fatalf("slice iteration: %+v", vs[1])
	}
}

func TestUnboundedType(t *testing.T) {
	tests := map[string]bool{
		"Vec<u64>":                   true,
		"soroban_sdk::Map<u32, u32>": true,
		"&Bytes":                     true,
		"&'a mut String":             true,
		"&[u8]":                      true,
		"[u8; 32]":                   false,
		"BytesN<32>":                 false,
		"u64":                        false,
		"Option<Vec<u8>>":            false,
	}
	for typ, want := range tests {
		if got := unboundedType(typ); got != want {
			t.Fatalf("unboundedType(%q): got %v, want %v", typ, got, want)
		}
	}
}

func TestExpensiveStrings(t *testing.T) {
	src := `#[contracttype]
pub struct Profile {
    pub name: Symbol,
}

#[contractimpl]
impl Profile {
    pub fn describe(&self, env: Env) -> String {
        let mut s = String::from("profile: ");
        s.push_str(&self.name.to_string());
        let t = format!("{}{}", s, s) + &s;
        t
    }
}
`
	vs := NewExpensiveStrings().Apply(mustParse(t, src))
	type pos struct{ line, col uint32 }
	want := []pos{{9, 21}, {10, 10}, {11, 17}}
	if len(vs) != len(want) {
		t.Fatalf("expected one violation per line, got %+v", vs)
	}
	for i, w := range want {
		if vs[i].Line != w.line || vs[i].Column != w.col {
			t.Fatalf("violation %d at %d:%d, want %d:%d", i, vs[i].Line, vs[i].Column, w.line, w.col)
		}
	}
}

func TestVecWithoutCapacity(t *testing.T) {
	src := `#[contracttype]
pub struct Batch {
    pub size: u32,
}

#[contractimpl]
impl Batch {
    pub fn build(&self, env: Env) {
        let grown = Vec::new();
        grown.push(1);
        let mut sized: Vec<u32> = Vec::with_capacity(4);
        sized.push(1);
        let idle = Vec::new();
        idle.len();
        let mut host = Vec::new(&env);
        host.push_back(1);
        let mut typed = Vec::<u8>::new();
        typed.push(2);
    }
}
`
	vs := NewVecWithoutCapacity().Apply(mustParse(t, src))
	if got := variables(vs); !reflect.DeepEqual(got, []string{"grown", "typed"}) {
		t.Fatalf("got %v", got)
	}
}

func TestPrivateContractField(t *testing.T) {
	src := `#[contracttype]
pub struct Escrow {
    pub buyer: Address,
    seller: Address,
    pub(crate) fee: u32,
    #[allow(dead_code)]
    memo: Symbol,
}

#[contracttype]
pub enum Phase {
    Open,
    Closed,
}

pub struct Helper {
    hidden: u32,
}
`
	vs := NewPrivateContractField().Apply(mustParse(t, src))
	if got := variables(vs); !reflect.DeepEqual(got, []string{"memo", "seller"}) {
		t.Fatalf("got %v", got)
	}
	if vs[0].Variable != "seller" || vs[0].Line != 4 || vs[0].Column != 5 || vs[0].Severity != violation.SevInfo {
		t.Fatalf("seller: %+v", vs[0])
	}
	if !strings.Contains(vs[0].Description, "Escrow") {
		t.Fatalf("description should name the type: %q", vs[0].Description)
	}
}

func TestCalledOn(t *testing.T) {
	tests := []struct {
		src, name, method string
		noArgs            bool
		want              bool
	}{
		{"if values.len() > 10 {", "values", "len", true, true},
		{"if values . len ( ) > 10 {", "values", "len", true, true},
		{"if other_values.len() > 10 {", "values", "len", true, false},
		{"values.len_hint()", "values", "len", true, false},
		{"values.len(x)", "values", "len", true, false},
		{"buf.push(1);", "buf", "push", false, true},
		{"buf.push_back(1);", "buf", "push", false, false},
		{"buf\n    .push(item);", "buf", "push", false, true},
		{"let n = buf;", "buf", "push", false, false},
	}
	for _, tt := range tests {
		if got := calledOn(tt.src, tt.name, tt.method, tt.noArgs); got != tt.want {
			t.Fatalf("calledOn(%q, %q, %q): got %v, want %v", tt.src, tt.name, tt.method, got, tt.want)
		}
	}
}
