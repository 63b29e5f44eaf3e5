package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBladeParser_Parse(t *testing.T) {
	t.Parallel()

	parser := NewBladeParser()

	content := []byte(`
@extends('layouts.app')

@section('content')
    <x-user-card :user="$user" />
    @include('partials.footer')
    @component('alert')
        Saved!
    @endcomponent
@endsection
`)

	result, err := parser.Parse("resources/views/users/show.blade.php", content)
	require.NoError(t, err)

	require.Len(t, result.Symbols, 1)
	assert.Equal(t, "users.show", result.Symbols[0].Name)

	var foundComponent, foundInclude, foundDirective bool
	for _, c := range result.Calls {
		switch {
		case c.Name == "x-user-card":
			foundComponent = true
			assert.Equal(t, "BladeComponent", c.Receiver)
		case c.Name == "partials.footer":
			foundInclude = true
			assert.Equal(t, "BladeInclude", c.Receiver)
		case c.Name == "alert":
			foundDirective = true
		}
	}
	assert.True(t, foundComponent, "should find x-user-card component")
	assert.True(t, foundInclude, "should find partials.footer include")
	assert.True(t, foundDirective, "should find alert component directive")

	require.Len(t, result.Heritage, 1)
	assert.Equal(t, "layouts.app", result.Heritage[0].ParentName)
}

func TestBladeParser_Language(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "blade", NewBladeParser().Language())
}
