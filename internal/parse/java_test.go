package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowgraph/knowgraph/internal/graph"
)

func TestJavaParser_Parse(t *testing.T) {
	t.Parallel()

	parser := NewJavaParser()

	t.Run("ParseClassAndMethod", func(t *testing.T) {
		content := []byte(`
package com.example;

public class UserService {
    public User getUser(int id) {
        return repository.findById(id);
    }
}
`)
		result, err := parser.Parse("UserService.java", content)
		require.NoError(t, err)

		var hasClass, hasMethod bool
		for _, sym := range result.Symbols {
			if sym.Kind == graph.NodeClass && sym.Name == "UserService" {
				hasClass = true
			}
			if sym.Kind == graph.NodeMethod && sym.Name == "getUser" {
				hasMethod = true
				assert.Equal(t, "UserService", sym.ClassName)
			}
		}
		assert.True(t, hasClass, "should find UserService class")
		assert.True(t, hasMethod, "should find getUser method")
		assert.NotEmpty(t, result.Calls)
	})

	t.Run("ParseInheritance", func(t *testing.T) {
		content := []byte(`
public class AdminUser extends BaseUser implements Serializable {
}
`)
		result, err := parser.Parse("AdminUser.java", content)
		require.NoError(t, err)
		assert.NotEmpty(t, result.Heritage)
	})

	t.Run("ParseImports", func(t *testing.T) {
		content := []byte(`
import java.util.List;
import java.util.*;
`)
		result, err := parser.Parse("Foo.java", content)
		require.NoError(t, err)
		assert.NotEmpty(t, result.Imports)
	})
}

func TestJavaParser_Language(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "java", NewJavaParser().Language())
}
