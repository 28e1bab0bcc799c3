package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKinds(t *testing.T) {
	assert.Equal(t, KindNull, Null().Kind())
	assert.Equal(t, KindBool, FromBool(true).Kind())
	assert.Equal(t, KindInt, FromInt(1).Kind())
	assert.Equal(t, KindFloat, FromFloat(1.5).Kind())
	assert.Equal(t, KindString, FromString("x").Kind())
	assert.Equal(t, KindArray, FromSlice(nil).Kind())
	assert.Equal(t, KindObject, FromMap(nil).Kind())
}

func TestFromAny(t *testing.T) {
	t.Run("scalars", func(t *testing.T) {
		assert.Equal(t, KindNull, FromAny(nil).Kind())
		assert.Equal(t, FromInt(42), FromAny(42))
		assert.Equal(t, FromInt(42), FromAny(int64(42)))
		assert.Equal(t, FromFloat(1.5), FromAny(1.5))
		assert.Equal(t, FromString("hi"), FromAny("hi"))
		assert.Equal(t, FromBool(true), FromAny(true))
	})

	t.Run("nested map and slice", func(t *testing.T) {
		v := FromAny(map[string]any{
			"user":  map[string]any{"name": "Ada"},
			"items": []any{1, "two"},
		})
		fields, ok := v.AsMap()
		require.True(t, ok)

		user, ok := fields["user"].AsMap()
		require.True(t, ok)
		assert.Equal(t, FromString("Ada"), user["name"])

		items, ok := fields["items"].AsSlice()
		require.True(t, ok)
		require.Len(t, items, 2)
		assert.Equal(t, FromInt(1), items[0])
		assert.Equal(t, FromString("two"), items[1])
	})

	t.Run("struct with json tags", func(t *testing.T) {
		type page struct {
			Title string `json:"title"`
			Draft bool   `json:"-"`
			Views int
		}
		v := FromAny(page{Title: "Home", Draft: true, Views: 7})
		fields, ok := v.AsMap()
		require.True(t, ok)
		assert.Equal(t, FromString("Home"), fields["title"])
		assert.Equal(t, FromInt(7), fields["Views"])
		_, hidden := fields["Draft"]
		assert.False(t, hidden)
	})

	t.Run("value passes through", func(t *testing.T) {
		v := FromString("x")
		assert.Equal(t, v, FromAny(v))
	})
}

func TestIsTruthy(t *testing.T) {
	tests := []struct {
		name string
		val  Value
		want bool
	}{
		{"null", Null(), false},
		{"true", FromBool(true), true},
		{"false", FromBool(false), false},
		{"zero int", FromInt(0), false},
		{"nonzero int", FromInt(-3), true},
		{"zero float", FromFloat(0), false},
		{"nonzero float", FromFloat(0.1), true},
		{"empty string", FromString(""), false},
		{"string", FromString("a"), true},
		{"empty array", FromSlice(nil), false},
		{"array", FromSlice([]Value{Null()}), true},
		{"empty object", FromMap(nil), false},
		{"object", FromMap(map[string]Value{"k": Null()}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.val.IsTruthy())
		})
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, FromString("a").Equal(FromString("a")))
	assert.True(t, FromInt(3).Equal(FromInt(3)))
	assert.True(t, FromBool(false).Equal(FromBool(false)))

	assert.False(t, FromString("a").Equal(FromString("b")))
	assert.False(t, FromInt(3).Equal(FromFloat(3)))
	assert.False(t, FromInt(1).Equal(FromBool(true)))
	assert.False(t, FromString("1").Equal(FromInt(1)))
	assert.False(t, Null().Equal(Null()))
	assert.False(t, FromFloat(1.5).Equal(FromFloat(1.5)))
}

func TestAsNumber(t *testing.T) {
	assert.Equal(t, 3.0, FromInt(3).AsNumber())
	assert.Equal(t, 1.5, FromFloat(1.5).AsNumber())
	assert.Equal(t, 0.0, FromString("8").AsNumber())
	assert.Equal(t, 0.0, Null().AsNumber())
	assert.Equal(t, 0.0, FromBool(true).AsNumber())
}

func TestString(t *testing.T) {
	assert.Equal(t, "", Null().String())
	assert.Equal(t, "true", FromBool(true).String())
	assert.Equal(t, "42", FromInt(42).String())
	assert.Equal(t, "2.0", FromFloat(2).String())
	assert.Equal(t, "hello", FromString("hello").String())
	assert.Equal(t, `[1, "a"]`, FromSlice([]Value{FromInt(1), FromString("a")}).String())
	assert.Equal(t, `{"k": 1}`, FromMap(map[string]Value{"k": FromInt(1)}).String())
}

func TestLen(t *testing.T) {
	n, ok := FromString("abc").Len()
	require.True(t, ok)
	assert.Equal(t, 3, n)

	n, ok = FromSlice([]Value{Null(), Null()}).Len()
	require.True(t, ok)
	assert.Equal(t, 2, n)

	_, ok = FromInt(3).Len()
	assert.False(t, ok)
}
