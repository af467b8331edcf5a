package renderer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRequiredVariables(t *testing.T) {
	testCases := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "plain placeholders",
			src:  "hostname {{hostname}}\ninterface {{ iface }}\nhostname again {{ hostname }}",
			want: []string{"hostname", "iface"},
		},
		{
			name: "filters and attributes keep the leading name",
			src:  "{{ hostname|upper }} {{ site.name }} {{- vlan -}}",
			want: []string{"hostname", "site", "vlan"},
		},
		{
			name: "default filter makes a variable optional",
			src:  `{{ banner|default:"none" }} {{ desc | default_if_none:"" }}`,
			want: nil,
		},
		{
			name: "literals keywords and calls",
			src:  `{{ "text" }} {{ 42 }} {{ 1.5 }} {{ not shutdown }} {{ now() }} {{ forloop.Counter }}`,
			want: []string{"shutdown"},
		},
		{
			name: "loop and set bindings are local",
			src: `{% for k, v in pairs %}{{ k }}={{ v }}{% endfor %}
{% for port in ports %}{{ port }}{% endfor %}
{% set mask = "255.255.255.0" %}{{ mask }} {{ ip }}`,
			want: []string{"ip", "pairs", "ports"},
		},
		{
			name: "with and macro bindings are local",
			src: `{% with gw=gateway %}{{ gw }}{% endwith %}
{% with gateway as g2 %}{{ g2 }}{% endwith %}
{% macro iface(name, mode="access") %}{{ name }} {{ mode }}{% endmacro %}{{ iface("Gi0/1") }}`,
			want: nil,
		},
		{
			name: "imports are local",
			src:  `{% import "macros.j2" banner, ntp as clock %}{{ banner }} {{ clock }}`,
			want: nil,
		},
		{
			name: "comments are ignored",
			src:  "{# {{ secret }} #}{% comment %}{{ other }}{% endcomment %}{{ hostname }}",
			want: []string{"hostname"},
		},
		{
			name: "filter arguments are variables",
			src:  `{{ hostname|add:domain }} {{ descr|join:", " }}`,
			want: []string{"descr", "domain", "hostname"},
		},
		{
			name: "every operand is a variable",
			src:  `{{ 100 + vlan_offset }} {{ site.name ~ "-" ~ rack }} {{ a["key"] }}`,
			want: []string{"a", "rack", "site", "vlan_offset"},
		},
		{
			name: "loop sources are variables",
			src:  `{% for v in vlans %}{{ v }}{% endfor %}{% for p in ports|split:sep reversed %}{{ p }}{% endfor %}`,
			want: []string{"ports", "sep", "vlans"},
		},
		{
			name: "default filter argument is still required",
			src:  `{{ banner|default:fallback }}`,
			want: []string{"fallback"},
		},
		{
			name: "escaped quotes stay inside the literal",
			src:  `{{ "say \"hi\" to" }} {{ 'it\'s' }} {{ hostname }}`,
			want: []string{"hostname"},
		},
		{
			name: "if guard only covers its own block",
			src:  "{% if mgmt_ip %}x {{ mgmt_ip }}{% endif %}\nip {{ mgmt_ip }}",
			want: []string{"mgmt_ip"},
		},
		{
			name: "nested if guards",
			src:  `{% if vlan %}{% if voice %}{{ vlan }} {{ voice }}{% endif %}{{ voice }}{% endif %}`,
			want: []string{"voice"},
		},
		{
			name: "guarded loop source",
			src:  `{%- if vlans -%}{% for v in vlans %}{{ v }}{% endfor %}{%- endif -%}`,
			want: nil,
		},
		{
			name: "names tested by if are optional",
			src:  `{% if vlan %}vlan {{ vlan }}{% elif role == "core" %}{{ role }}{% endif %}{{ hostname }}`,
			want: []string{"hostname"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := RequiredVariables(tc.src)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("RequiredVariables() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
